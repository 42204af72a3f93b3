// Package domain contains core concepts of the messaging engine.
// This file defines Message entities and related rules.
// Messages are immutable once appended, except the IsEdited flag.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// Valid reports whether t is one of the supported message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeFile:
		return true
	}
	return false
}

// Message represents one entry of a conversation log.
// Content holds literal text for TypeText, or an opaque blob store
// reference for TypeImage and TypeFile.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Content        string
	Type           MessageType
	Lang           string // ISO 639-1 code, text messages only
	Seq            uint64 // append order within the conversation, tiebreak for equal timestamps
	CreatedAt      time.Time
	IsEdited       bool
}
