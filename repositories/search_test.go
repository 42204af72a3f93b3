package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"convo/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func textMessage(convID uuid.UUID, sender, content string) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       sender,
		Content:        content,
		Type:           domain.TypeText,
		Lang:           "en",
		CreatedAt:      time.Now().UTC(),
	}
}

func Test_Search_Finds_Indexed_Messages(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	convID := uuid.New()

	msg := textMessage(convID, "alice", "we should migrate the invoices pipeline")
	req.NoError(index.Index(msg))
	req.NoError(index.Index(textMessage(convID, "bob", "lunch anyone?")))

	hits, total, err := index.Search(context.Background(), convID, "invoices", 10)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal(msg.ID, hits[0].MessageID)
	req.Equal("alice", hits[0].SenderID)
	req.Contains(hits[0].Content, "invoices")
}

func Test_Search_Is_Scoped_To_Conversation(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	first := uuid.New()
	second := uuid.New()

	req.NoError(index.Index(textMessage(first, "alice", "quarterly report draft")))
	req.NoError(index.Index(textMessage(second, "bob", "quarterly numbers look fine")))

	hits, total, err := index.Search(context.Background(), first, "quarterly", 10)
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal(first, hits[0].ConversationID)
}

func Test_Index_Skips_Blob_Messages(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)
	convID := uuid.New()

	blob := textMessage(convID, "alice", "ref_holiday_photo.png")
	blob.Type = domain.TypeImage
	req.NoError(index.Index(blob))

	_, total, err := index.Search(context.Background(), convID, "holiday", 10)
	req.NoError(err)
	req.Zero(total)
}
