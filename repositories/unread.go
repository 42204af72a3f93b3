//go:generate go run go.uber.org/mock/mockgen -source=unread.go -destination=../mocks/mock_unread_repository.go -package=mocks
package repositories

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUnreadRepository interface {
	MarkRead(userID string, convID uuid.UUID) (int, error)
	Count(userID string, convID *uuid.UUID) (int, error)
}

// UnreadRepository queries and clears the per-user unread markers written
// by the message log's fan-out. Markers live under user-first keys so one
// prefix scan answers both the global and the per-conversation count.
type UnreadRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUnreadRepository(db *badger.DB, log *slog.Logger) *UnreadRepository {
	return &UnreadRepository{db: db, log: log}
}

// MarkRead clears every marker the user holds for the conversation and
// returns how many were deleted. Calling it again when nothing is unread
// returns 0, not an error.
func (r *UnreadRepository) MarkRead(userID string, convID uuid.UUID) (int, error) {
	cleared := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := unreadConvPrefix(userID, convID)
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
		cleared = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if cleared > 0 {
		r.log.Debug("unread markers cleared", "user_id", userID, "conversation_id", convID, "count", cleared)
	}
	return cleared, nil
}

// Count returns the user's live marker count, scoped to one conversation
// when convID is non-nil.
func (r *UnreadRepository) Count(userID string, convID *uuid.UUID) (int, error) {
	prefix := unreadUserPrefix(userID)
	if convID != nil {
		prefix = unreadConvPrefix(userID, *convID)
	}

	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
