// Package api is a thin HTTP adapter over the delivery facade. It owns
// routing, serialization and status mapping only; every rule about
// conversations, messages and unread state lives behind the facade.
package api

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"convo/contract"
	"convo/domain"
	"convo/observability"
	"convo/repositories"
	"convo/services"
	"convo/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Server struct {
	delivery services.IDeliveryService
	accounts services.IAuthService
	identity contract.IdentityProvider
	blobs    contract.BlobStore
	stats    *observability.DeliveryStats
	log      *slog.Logger
}

func NewServer(
	delivery services.IDeliveryService,
	accounts services.IAuthService,
	identity contract.IdentityProvider,
	blobs contract.BlobStore,
	stats *observability.DeliveryStats,
	log *slog.Logger,
) *Server {
	return &Server{
		delivery: delivery,
		accounts: accounts,
		identity: identity,
		blobs:    blobs,
		stats:    stats,
		log:      log,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/api/auth/register", s.register)
	router.POST("/api/auth/login", s.login)
	router.GET("/api/stats", s.statsHandler)

	authed := router.Group("/api", BearerAuth(s.identity))
	authed.GET("/users/find", s.findUser)
	authed.GET("/conversations", s.listConversations)
	authed.POST("/conversations", s.createConversation)
	authed.GET("/conversations/:id/messages", s.fetchMessages)
	authed.POST("/conversations/:id/read", s.markRead)
	authed.GET("/conversations/:id/search", s.searchMessages)
	authed.DELETE("/conversations/:id", s.deleteConversation)
	authed.POST("/messages", s.sendMessage)
	authed.GET("/unread", s.unreadCount)
	authed.GET("/blobs/:reference", s.serveBlob)

	return router
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}

	userID, token, err := s.accounts.Register(req.Email, req.FullName, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":  gin.H{"id": userID, "full_name": req.FullName, "email": req.Email},
		"token": string(token),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}

	user, token, err := s.accounts.Login(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"id": user.ID, "full_name": user.FullName, "email": user.Email},
		"token": string(token),
	})
}

func (s *Server) findUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	user, err := s.accounts.FindUserByEmail(email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email, "full_name": user.FullName})
}

func (s *Server) listConversations(c *gin.Context) {
	summaries, err := s.delivery.ListConversations(actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": lo.Map(summaries, func(sum repositories.ConversationSummary, _ int) conversationResponse {
			return toConversationResponse(sum)
		}),
	})
}

type createConversationRequest struct {
	IsGroup   bool     `json:"is_group"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

func (s *Server) createConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}

	conv, err := s.delivery.CreateConversation(domain.CreateConversationCommand{
		CreatorID: actor(c),
		IsGroup:   req.IsGroup,
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         conv.ID.String(),
		"name":       conv.Name,
		"is_group":   conv.IsGroup,
		"members":    conv.Members,
		"created_at": conv.CreatedAt,
	})
}

func (s *Server) fetchMessages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	messages, err := s.delivery.FetchMessages(actor(c), convID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation": convID.String(),
		"messages":     lo.Map(messages, func(m domain.Message, _ int) messageResponse { return toMessageResponse(m) }),
	})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	Type           string `json:"type"`
}

// sendMessage accepts either a JSON body for text, or multipart form data
// carrying a file. Uploads go through the blob store first; the message
// content is the returned reference, never the bytes.
func (s *Server) sendMessage(c *gin.Context) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		s.sendBlobMessage(c, fileHeader)
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}
	convID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	msg, err := s.delivery.SendMessage(c.Request.Context(), domain.SendMessageCommand{
		ActorID:        actor(c),
		ConversationID: convID,
		Content:        req.Content,
		Type:           domain.MessageType(req.Type),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toMessageResponse(msg)})
}

func (s *Server) sendBlobMessage(c *gin.Context, fileHeader *multipart.FileHeader) {
	convID, err := uuid.Parse(c.PostForm("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(c, err)
		return
	}

	reference, err := s.blobs.Store(data, fileHeader.Filename)
	if err != nil {
		writeError(c, err)
		return
	}

	msg, err := s.delivery.SendMessage(c.Request.Context(), domain.SendMessageCommand{
		ActorID:        actor(c),
		ConversationID: convID,
		Content:        reference,
		Type:           storage.ClassifyPayload(data),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	size, err := s.blobs.SizeOf(reference)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data":      toMessageResponse(msg),
		"file_url":  "/api/blobs/" + reference,
		"file_name": fileHeader.Filename,
		"file_size": size,
	})
}

func (s *Server) markRead(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	cleared, err := s.delivery.MarkConversationRead(actor(c), convID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (s *Server) unreadCount(c *gin.Context) {
	var convID *uuid.UUID
	if raw := c.Query("conversation_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
			return
		}
		convID = &parsed
	}

	count, err := s.delivery.UnreadCount(actor(c), convID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (s *Server) searchMessages(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	hits, total, err := s.delivery.SearchMessages(c.Request.Context(), domain.SearchMessagesCommand{
		ActorID:        actor(c),
		ConversationID: convID,
		Terms:          c.Query("q"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "hits": hits})
}

func (s *Server) deleteConversation(c *gin.Context) {
	convID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	if err := s.delivery.DeleteConversation(convID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) serveBlob(c *gin.Context) {
	path, err := s.blobs.Open(c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.File(path)
}

func (s *Server) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}
