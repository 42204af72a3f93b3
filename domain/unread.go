package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnreadMarker records that one message has not been acknowledged by one
// user. At most one marker exists per (user, message) pair. Markers are
// created for every member except the sender when a message is appended,
// and destroyed when the user marks the conversation read.
type UnreadMarker struct {
	UserID         string
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	At             time.Time
}
