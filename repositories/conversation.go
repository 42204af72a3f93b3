//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"convo/domain"
	"convo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	Create(isGroup bool, name string, memberIDs []string) (domain.Conversation, error)
	Get(id uuid.UUID) (domain.Conversation, error)
	IsMember(convID uuid.UUID, userID string) (bool, error)
	AddMember(convID uuid.UUID, userID string) error
	ListForUser(userID string) ([]ConversationSummary, error)
	Delete(convID uuid.UUID) error
}

// ConversationSummary pairs a conversation with its resolved last message.
// The pointer resolution is the one real join of the list view: the stored
// record only carries the message id, never the message itself.
type ConversationSummary struct {
	Conversation domain.Conversation
	LastMessage  *domain.Message
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// Create persists a new conversation with an empty last-message pointer.
// Membership index keys are written in the same transaction so ListForUser
// never observes a conversation without its index entries.
func (r *ConversationRepository) Create(isGroup bool, name string, memberIDs []string) (domain.Conversation, error) {
	conv := domain.Conversation{
		ID:        uuid.New(),
		Name:      name,
		IsGroup:   isGroup,
		Members:   memberIDs,
		CreatedAt: time.Now().UTC(),
	}

	data, err := encode(fromConversation(conv))
	if err != nil {
		return domain.Conversation{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(convKey(conv.ID), data); err != nil {
			return err
		}
		for _, member := range conv.Members {
			if err := txn.Set(memberIdxKey(member, conv.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (r *ConversationRepository) Get(id uuid.UUID) (domain.Conversation, error) {
	var dc diskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		dc, err = getDiskConversation(txn, id)
		return err
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(dc)
}

func (r *ConversationRepository) IsMember(convID uuid.UUID, userID string) (bool, error) {
	conv, err := r.Get(convID)
	if err != nil {
		return false, err
	}
	return conv.HasMember(userID), nil
}

// AddMember grows the member set. Removal is intentionally not offered:
// membership may only grow, past messages stay attributable.
func (r *ConversationRepository) AddMember(convID uuid.UUID, userID string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		dc, err := getDiskConversation(txn, convID)
		if err != nil {
			return err
		}
		for _, m := range dc.Members {
			if m == userID {
				return nil // already a member, idempotent
			}
		}
		dc.Members = append(dc.Members, userID)
		data, err := encode(dc)
		if err != nil {
			return err
		}
		if err := txn.Set(convKey(convID), data); err != nil {
			return err
		}
		return txn.Set(memberIdxKey(userID, convID), nil)
	})
}

// ListForUser returns the user's conversations ordered by the CreatedAt of
// each conversation's last message, newest first. Conversations without
// messages sort last; ties fall back to conversation CreatedAt descending.
func (r *ConversationRepository) ListForUser(userID string) ([]ConversationSummary, error) {
	var summaries []ConversationSummary

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := memberIdxPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := string(it.Item().Key()[len(prefix):])
			convID, err := uuid.Parse(rawID)
			if err != nil {
				r.log.Warn("skipping malformed membership index key", "key", string(it.Item().Key()))
				continue
			}

			dc, err := getDiskConversation(txn, convID)
			if err != nil {
				return err
			}
			conv, err := toConversation(dc)
			if err != nil {
				return err
			}

			summary := ConversationSummary{Conversation: conv}
			if conv.LastMessageID != nil {
				last, err := resolveMessage(txn, convID, *conv.LastMessageID)
				if err != nil {
					return err
				}
				summary.LastMessage = &last
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch {
		case a.LastMessage != nil && b.LastMessage == nil:
			return true
		case a.LastMessage == nil && b.LastMessage != nil:
			return false
		case a.LastMessage != nil && b.LastMessage != nil:
			if !a.LastMessage.CreatedAt.Equal(b.LastMessage.CreatedAt) {
				return a.LastMessage.CreatedAt.After(b.LastMessage.CreatedAt)
			}
		}
		return a.Conversation.CreatedAt.After(b.Conversation.CreatedAt)
	})
	return summaries, nil
}

// Delete removes a conversation and cascades to its messages, pointer
// index and every member's unread markers, all in a single transaction.
func (r *ConversationRepository) Delete(convID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		dc, err := getDiskConversation(txn, convID)
		if err != nil {
			return err
		}

		if err := deleteByPrefix(txn, msgPrefix(convID)); err != nil {
			return err
		}
		if err := deleteByPrefix(txn, msgRefPrefixFor(convID)); err != nil {
			return err
		}
		for _, member := range dc.Members {
			if err := deleteByPrefix(txn, unreadConvPrefix(member, convID)); err != nil {
				return err
			}
			if err := txn.Delete(memberIdxKey(member, convID)); err != nil {
				return err
			}
		}
		return txn.Delete(convKey(convID))
	})
}

// getDiskConversation reads a conversation record inside txn, mapping a
// missing key onto the engine's not-found error.
func getDiskConversation(txn *badger.Txn, id uuid.UUID) (diskConversation, error) {
	item, err := txn.Get(convKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return diskConversation{}, errors.ErrNotFound
	}
	if err != nil {
		return diskConversation{}, err
	}

	var dc diskConversation
	err = item.Value(func(val []byte) error {
		return decode(val, &dc)
	})
	return dc, err
}

// resolveMessage follows the msgref pointer index to the primary log key.
func resolveMessage(txn *badger.Txn, convID, msgID uuid.UUID) (domain.Message, error) {
	item, err := txn.Get(msgRefKey(convID, msgID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}

	var primary []byte
	if err := item.Value(func(val []byte) error {
		primary = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return domain.Message{}, err
	}

	item, err = txn.Get(primary)
	if err != nil {
		return domain.Message{}, err
	}
	var dm diskMessage
	if err := item.Value(func(val []byte) error {
		return decode(val, &dm)
	}); err != nil {
		return domain.Message{}, err
	}
	return toMessage(dm)
}

func deleteByPrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
