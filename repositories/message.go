//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"log/slog"
	"sync"
	"time"

	"convo/domain"
	"convo/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(convID uuid.UUID, senderID, content string, msgType domain.MessageType, lang string) (domain.Message, error)
	List(convID uuid.UUID, requesterID string) ([]domain.Message, error)
	GetByID(convID, msgID uuid.UUID) (domain.Message, error)
}

// MessageRepository owns the append-only per-conversation log. A send is a
// single BadgerDB read-write transaction covering the message record, the
// conversation's last-message pointer and the unread fan-out: a reader can
// never observe one of those without the others.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	// Per-conversation append lock. Badger would detect the write-write
	// race on the conversation record anyway, but serializing appends up
	// front keeps the timestamp high-water mark uncontended and leaves
	// transaction conflicts to the rare cross-operation races.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:    db,
		log:   log,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *MessageRepository) convLock(convID uuid.UUID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[convID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[convID] = lock
	}
	return lock
}

// Append durably records a message and applies its consequences atomically:
// the conversation's last-message pointer moves to the new message and one
// unread marker is written per member other than the sender. Timestamps are
// clamped to the conversation's high-water mark so CreatedAt never decreases
// within a log; the sequence number breaks ties in append order.
func (r *MessageRepository) Append(convID uuid.UUID, senderID, content string, msgType domain.MessageType, lang string) (domain.Message, error) {
	lock := r.convLock(convID)
	lock.Lock()
	defer lock.Unlock()

	var msg domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		dc, err := getDiskConversation(txn, convID)
		if err != nil {
			return err
		}

		isMember := false
		for _, m := range dc.Members {
			if m == senderID {
				isMember = true
				break
			}
		}
		if !isMember {
			return errors.ErrPermissionDenied
		}

		at := time.Now().UTC()
		if at.UnixNano() < dc.LastAppendNano {
			at = time.Unix(0, dc.LastAppendNano).UTC()
		}
		seq := dc.NextSeq

		msg = domain.Message{
			ID:             uuid.New(),
			ConversationID: convID,
			SenderID:       senderID,
			Content:        content,
			Type:           msgType,
			Lang:           lang,
			Seq:            seq,
			CreatedAt:      at,
		}

		data, err := encode(fromMessage(msg))
		if err != nil {
			return err
		}
		primary := msgKey(convID, at, seq)
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		if err := txn.Set(msgRefKey(convID, msg.ID), primary); err != nil {
			return err
		}

		// Last-pointer maintenance, same transaction (I1).
		dc.LastMessageID = msg.ID.String()
		dc.LastAppendNano = at.UnixNano()
		dc.NextSeq = seq + 1
		convData, err := encode(dc)
		if err != nil {
			return err
		}
		if err := txn.Set(convKey(convID), convData); err != nil {
			return err
		}

		// Unread fan-out, same transaction (I2). Cost is O(members).
		for _, member := range dc.Members {
			if member == senderID {
				continue
			}
			if err := txn.Set(unreadKey(member, convID, at, msg.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	r.log.Debug("message appended",
		"conversation_id", convID,
		"message_id", msg.ID,
		"seq", msg.Seq,
		"type", string(msg.Type),
	)
	return msg, nil
}

// List returns the conversation's messages oldest first. The padded
// timestamp and sequence in the key make a forward prefix scan produce
// exactly the append order consumers rely on for chat display.
func (r *MessageRepository) List(convID uuid.UUID, requesterID string) ([]domain.Message, error) {
	var messages []domain.Message

	err := r.db.View(func(txn *badger.Txn) error {
		dc, err := getDiskConversation(txn, convID)
		if err != nil {
			return err
		}
		member := false
		for _, m := range dc.Members {
			if m == requesterID {
				member = true
				break
			}
		}
		if !member {
			return errors.ErrPermissionDenied
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := msgPrefix(convID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(val []byte) error {
				return decode(val, &dm)
			})
			if err != nil {
				return err
			}
			msg, err := toMessage(dm)
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetByID resolves one message through the pointer index.
func (r *MessageRepository) GetByID(convID, msgID uuid.UUID) (domain.Message, error) {
	var msg domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		msg, err = resolveMessage(txn, convID, msgID)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}
