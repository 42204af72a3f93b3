//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_message_index.go -package=mocks
package repositories

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"convo/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type IMessageIndex interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, convID uuid.UUID, terms string, limit int) ([]SearchHit, uint64, error)
}

type SearchHit struct {
	MessageID      uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// MessageIndex is a derived full-text view over the message log. It is fed
// after the append transaction commits, so it trails the log briefly; the
// log, not the index, is the source of truth for ordering and existence.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index makes one text message searchable. Image and file messages carry
// blob references, not prose, and are skipped.
func (m *MessageIndex) Index(msg domain.Message) error {
	if msg.Type != domain.TypeText {
		return nil
	}

	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("conversation_id", msg.ConversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", msg.SenderID).StoreValue()).
		AddField(bluge.NewKeywordField("lang", msg.Lang)).
		AddField(bluge.NewStoredOnlyField("created_at", []byte(strconv.FormatInt(msg.CreatedAt.UnixNano(), 10))))

	return m.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message content, scoped to one conversation.
func (m *MessageIndex) Search(ctx context.Context, convID uuid.UUID, terms string, limit int) ([]SearchHit, uint64, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			m.log.Error("closing index reader", "err", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(convID.String()).SetField("conversation_id"))

	request := bluge.NewTopNSearch(limit, query).WithStandardAggregations()
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	var hits []SearchHit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit SearchHit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID, _ = uuid.Parse(string(value))
			case "conversation_id":
				hit.ConversationID, _ = uuid.Parse(string(value))
			case "sender_id":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "created_at":
				if nanos, parseErr := strconv.ParseInt(string(value), 10, 64); parseErr == nil {
					hit.CreatedAt = time.Unix(0, nanos).UTC()
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}
	return hits, iterator.Aggregations().Count(), nil
}
