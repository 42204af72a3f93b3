//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

// IdentityProvider resolves user identities for the delivery engine.
// Authentication itself lives behind this boundary; the engine only
// needs existence checks and credential-to-user resolution.
type IdentityProvider interface {
	Resolve(userID string) (bool, error)
	CurrentUser(credential string) (string, error)
}

// BlobStore holds binary payloads referenced by image and file messages.
// The engine never inspects file bytes: it stores the reference string
// returned by Store as the message content. Open resolves a reference to a
// local path for serving.
type BlobStore interface {
	Store(data []byte, filename string) (string, error)
	SizeOf(reference string) (int64, error)
	Open(reference string) (string, error)
}

// Censor sanitizes text content before it enters the message log.
type Censor interface {
	Censor(original string) (string, []string)
}
