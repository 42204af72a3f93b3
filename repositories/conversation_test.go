package repositories

import (
	"log/slog"
	"testing"
	"time"

	"convo/domain"
	"convo/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRandomID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

func Test_Create_And_Get_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewConversationRepository(db, slog.Default())

	conv, err := repo.Create(true, "war room", []string{"alice", "bob", "clara"})
	req.NoError(err)
	req.True(conv.IsGroup)
	req.Nil(conv.LastMessageID)

	got, err := repo.Get(conv.ID)
	req.NoError(err)
	req.Equal("war room", got.Name)
	req.ElementsMatch([]string{"alice", "bob", "clara"}, got.Members)

	_, err = repo.Get(newRandomID(t))
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_AddMember_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewConversationRepository(db, slog.Default())

	conv, err := repo.Create(false, "", []string{"alice", "bob"})
	req.NoError(err)

	req.NoError(repo.AddMember(conv.ID, "clara"))
	req.NoError(repo.AddMember(conv.ID, "clara"))

	got, err := repo.Get(conv.ID)
	req.NoError(err)
	req.Len(got.Members, 3)

	member, err := repo.IsMember(conv.ID, "clara")
	req.NoError(err)
	req.True(member)
}

func Test_ListForUser_Orders_By_Last_Message(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default())

	older, err := conversations.Create(false, "", []string{"alice", "bob"})
	req.NoError(err)
	newer, err := conversations.Create(false, "", []string{"alice", "clara"})
	req.NoError(err)
	silent, err := conversations.Create(false, "", []string{"alice", "dan"})
	req.NoError(err)

	_, err = messages.Append(older.ID, "bob", "old news", domain.TypeText, "en")
	req.NoError(err)
	time.Sleep(2 * time.Millisecond)
	_, err = messages.Append(newer.ID, "clara", "breaking news", domain.TypeText, "en")
	req.NoError(err)

	summaries, err := conversations.ListForUser("alice")
	req.NoError(err)
	req.Len(summaries, 3)

	// Most recent activity first, message-less conversation last.
	req.Equal(newer.ID, summaries[0].Conversation.ID)
	req.Equal("breaking news", summaries[0].LastMessage.Content)
	req.Equal(older.ID, summaries[1].Conversation.ID)
	req.Equal(silent.ID, summaries[2].Conversation.ID)
	req.Nil(summaries[2].LastMessage)

	// Non-members see nothing.
	summaries, err = conversations.ListForUser("mallory")
	req.NoError(err)
	req.Empty(summaries)
}

func Test_Delete_Cascades_To_Messages_And_Markers(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default())
	unread := NewUnreadRepository(db, slog.Default())

	conv, err := conversations.Create(true, "doomed", []string{"alice", "bob", "clara"})
	req.NoError(err)
	for i := 0; i < 3; i++ {
		_, err = messages.Append(conv.ID, "alice", "to be purged", domain.TypeText, "en")
		req.NoError(err)
	}

	count, err := unread.Count("bob", &conv.ID)
	req.NoError(err)
	req.Equal(3, count)

	req.NoError(conversations.Delete(conv.ID))

	_, err = conversations.Get(conv.ID)
	req.ErrorIs(err, errors.ErrNotFound)

	count, err = unread.Count("bob", &conv.ID)
	req.NoError(err)
	req.Zero(count)

	summaries, err := conversations.ListForUser("alice")
	req.NoError(err)
	req.Empty(summaries)
}
