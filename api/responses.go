package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"convo/domain"
	"convo/errors"
	"convo/repositories"

	"github.com/gin-gonic/gin"
)

// writeError maps the engine's error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 with no detail leaked.
func writeError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrValidation), stderrors.Is(err, errors.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrConflict), stderrors.Is(err, errors.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type messageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	Lang           string    `json:"lang,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	IsEdited       bool      `json:"is_edited"`
}

func toMessageResponse(msg domain.Message) messageResponse {
	return messageResponse{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Type:           string(msg.Type),
		Lang:           msg.Lang,
		CreatedAt:      msg.CreatedAt,
		IsEdited:       msg.IsEdited,
	}
}

type conversationResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	IsGroup     bool             `json:"is_group"`
	Members     []string         `json:"members"`
	CreatedAt   time.Time        `json:"created_at"`
	LastMessage *messageResponse `json:"last_message,omitempty"`
}

func toConversationResponse(summary repositories.ConversationSummary) conversationResponse {
	resp := conversationResponse{
		ID:        summary.Conversation.ID.String(),
		Name:      summary.Conversation.Name,
		IsGroup:   summary.Conversation.IsGroup,
		Members:   summary.Conversation.Members,
		CreatedAt: summary.Conversation.CreatedAt,
	}
	if summary.LastMessage != nil {
		last := toMessageResponse(*summary.LastMessage)
		resp.LastMessage = &last
	}
	return resp
}
