//go:generate go run go.uber.org/mock/mockgen -source=delivery_service.go -destination=../mocks/mock_delivery_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"convo/contract"
	"convo/domain"
	"convo/errors"
	"convo/observability"
	"convo/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IDeliveryService interface {
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	CreateConversation(cmd domain.CreateConversationCommand) (domain.Conversation, error)
	ListConversations(userID string) ([]repositories.ConversationSummary, error)
	FetchMessages(userID string, convID uuid.UUID) ([]domain.Message, error)
	MarkConversationRead(userID string, convID uuid.UUID) (int, error)
	UnreadCount(userID string, convID *uuid.UUID) (int, error)
	SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]repositories.SearchHit, uint64, error)
	DeleteConversation(convID uuid.UUID) error
}

var validate = validator.New()

const defaultSearchLimit = 20

// DeliveryService is the only entry point external callers use. Every
// operation takes the acting user explicitly; nothing is read from ambient
// request state.
type DeliveryService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	unread        repositories.IUnreadRepository
	index         repositories.IMessageIndex
	identity      contract.IdentityProvider
	censor        contract.Censor
	stats         *observability.DeliveryStats
	log           *slog.Logger
}

func NewDeliveryService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	unread repositories.IUnreadRepository,
	index repositories.IMessageIndex,
	identity contract.IdentityProvider,
	censor contract.Censor,
	stats *observability.DeliveryStats,
	log *slog.Logger,
) *DeliveryService {
	return &DeliveryService{
		conversations: conversations,
		messages:      messages,
		unread:        unread,
		index:         index,
		identity:      identity,
		censor:        censor,
		stats:         stats,
		log:           log,
	}
}

// CreateConversation persists a conversation after resolving every member
// id against the identity provider. The creator joins the member set
// unconditionally, so a caller that forgot itself still ends up inside.
func (s *DeliveryService) CreateConversation(cmd domain.CreateConversationCommand) (domain.Conversation, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if cmd.IsGroup && cmd.Name == "" {
		return domain.Conversation{}, fmt.Errorf("%w: group conversations need a name", errors.ErrValidation)
	}

	members := lo.Uniq(append([]string{}, cmd.MemberIDs...))
	if !lo.Contains(members, cmd.CreatorID) {
		members = append(members, cmd.CreatorID)
	}

	for _, member := range members {
		exists, err := s.identity.Resolve(member)
		if err != nil {
			return domain.Conversation{}, err
		}
		if !exists {
			return domain.Conversation{}, fmt.Errorf("%w: unknown member %q", errors.ErrValidation, member)
		}
	}

	conv, err := s.conversations.Create(cmd.IsGroup, cmd.Name, members)
	if err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("conversation created",
		"conversation_id", conv.ID,
		"is_group", conv.IsGroup,
		"members", len(conv.Members),
	)
	return conv, nil
}

// SendMessage appends one message. The append itself is atomic in the
// repository: message, last-pointer and unread fan-out land together or not
// at all. Transaction conflicts are retried once, with a fresh message id
// per attempt, before surfacing as a storage failure.
func (s *DeliveryService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if err := validate.Struct(cmd); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if !cmd.Type.Valid() {
		return domain.Message{}, fmt.Errorf("%w: unsupported message type %q", errors.ErrValidation, cmd.Type)
	}
	if cmd.Content == "" {
		return domain.Message{}, fmt.Errorf("%w: empty content", errors.ErrValidation)
	}

	content := cmd.Content
	lang := ""
	if cmd.Type == domain.TypeText {
		if s.censor != nil {
			sanitized, found := s.censor.Censor(content)
			if len(found) > 0 {
				s.log.Warn("message censored", "actor", cmd.ActorID, "words", len(found))
			}
			content = sanitized
		}
		lang = whatlanggo.Detect(content).Lang.Iso6391()
	}

	msg, err := s.appendWithRetry(ctx, cmd.ConversationID, cmd.ActorID, content, cmd.Type, lang)
	if err != nil {
		return domain.Message{}, err
	}
	s.stats.MessageSent()

	// The index is a derived view; a failed index write must not undo a
	// committed send.
	if err := s.index.Index(msg); err != nil {
		s.log.Error("indexing message failed", "message_id", msg.ID, "err", err)
	}
	return msg, nil
}

func (s *DeliveryService) appendWithRetry(ctx context.Context, convID uuid.UUID, senderID, content string, msgType domain.MessageType, lang string) (domain.Message, error) {
	msg, err := s.messages.Append(convID, senderID, content, msgType, lang)
	if !stderrors.Is(err, badger.ErrConflict) {
		return msg, err
	}

	s.stats.ConflictRetried()
	if ctx.Err() != nil {
		return domain.Message{}, ctx.Err()
	}

	msg, err = s.messages.Append(convID, senderID, content, msgType, lang)
	if stderrors.Is(err, badger.ErrConflict) {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return msg, err
}

func (s *DeliveryService) ListConversations(userID string) ([]repositories.ConversationSummary, error) {
	return s.conversations.ListForUser(userID)
}

func (s *DeliveryService) FetchMessages(userID string, convID uuid.UUID) ([]domain.Message, error) {
	return s.messages.List(convID, userID)
}

// MarkConversationRead clears the user's unread markers for the
// conversation. A second call with nothing left returns 0, not an error.
func (s *DeliveryService) MarkConversationRead(userID string, convID uuid.UUID) (int, error) {
	if _, err := s.conversations.Get(convID); err != nil {
		return 0, err
	}
	cleared, err := s.unread.MarkRead(userID, convID)
	if err != nil {
		return 0, err
	}
	s.stats.ReadsCleared(cleared)
	return cleared, nil
}

func (s *DeliveryService) UnreadCount(userID string, convID *uuid.UUID) (int, error) {
	if convID != nil {
		if _, err := s.conversations.Get(*convID); err != nil {
			return 0, err
		}
	}
	return s.unread.Count(userID, convID)
}

// SearchMessages queries the full-text index, membership-checked like any
// other read of the log.
func (s *DeliveryService) SearchMessages(ctx context.Context, cmd domain.SearchMessagesCommand) ([]repositories.SearchHit, uint64, error) {
	if err := validate.Struct(cmd); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	member, err := s.conversations.IsMember(cmd.ConversationID, cmd.ActorID)
	if err != nil {
		return nil, 0, err
	}
	if !member {
		return nil, 0, errors.ErrPermissionDenied
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	s.stats.SearchRan()
	return s.index.Search(ctx, cmd.ConversationID, cmd.Terms, limit)
}

// DeleteConversation is the administrative removal path. It cascades to the
// conversation's messages and every member's unread markers. The cascade
// transaction reads the conversation record, so it can conflict with a
// concurrent append and follows the same retry-once policy.
func (s *DeliveryService) DeleteConversation(convID uuid.UUID) error {
	return s.retryConflict(func() error {
		return s.conversations.Delete(convID)
	})
}

// retryConflict runs op, retrying once when the store reports a transaction
// conflict. A second conflict surfaces as a storage failure.
func (s *DeliveryService) retryConflict(op func() error) error {
	err := op()
	if !stderrors.Is(err, badger.ErrConflict) {
		return err
	}

	s.stats.ConflictRetried()
	err = op()
	if stderrors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return err
}
