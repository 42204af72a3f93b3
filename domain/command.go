package domain

import (
	"github.com/google/uuid"
)

// SendMessageCommand carries one send request through the delivery facade.
// The actor is always explicit, never taken from ambient request state.
type SendMessageCommand struct {
	ActorID        string `validate:"required"`
	ConversationID uuid.UUID
	Content        string
	Type           MessageType `validate:"required"`
}

type CreateConversationCommand struct {
	CreatorID string   `validate:"required"`
	IsGroup   bool
	Name      string
	MemberIDs []string `validate:"required,min=1"`
}

type SearchMessagesCommand struct {
	ActorID        string `validate:"required"`
	ConversationID uuid.UUID
	Terms          string `validate:"required"`
	Limit          int
}
