package errors

import "fmt"

var (
	// ErrNotFound covers references to a conversation, message or user that does not exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrPermissionDenied is raised when the actor is not a member of the target conversation.
	ErrPermissionDenied = fmt.Errorf("permission denied")
	// ErrValidation covers malformed input: empty text content, unknown member id, unsupported message type.
	ErrValidation = fmt.Errorf("validation failed")
	// ErrConflict is reserved for concurrent-edit detection. No operation raises it yet.
	ErrConflict = fmt.Errorf("conflict")
	// ErrStorage wraps storage failures that survived the internal retry.
	ErrStorage = fmt.Errorf("storage failure")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
