// Package domain contains core concepts of the messaging engine.
// This file defines Conversation entities and membership invariants.
// No storage, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups users exchanging messages, either 1:1 or group.
// LastMessageID is a denormalized pointer to the most recent message of
// the log. It must reference an existing message of this conversation,
// or be nil while the conversation has no messages.
type Conversation struct {
	ID            uuid.UUID
	Name          string
	IsGroup       bool
	Members       []string
	CreatedAt     time.Time
	LastMessageID *uuid.UUID
}

// HasMember reports whether userID belongs to the member set.
func (c Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}
