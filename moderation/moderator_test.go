package moderation

import (
	"testing"

	"convo/errors"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	m, err := NewModerator(words, '*')
	require.NoError(t, err)
	return m
}

func Test_NewModerator_Requires_Words(t *testing.T) {
	_, err := NewModerator(nil, '*')
	require.ErrorIs(t, err, errors.ErrEmptyWords)
}

func Test_Censor_Replaces_Banned_Words(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "darn", "heck")

	sanitized, found := m.Censor("well darn it, what the heck")
	req.Equal("well **** it, what the ****", sanitized)
	req.Len(found, 2)
}

func Test_Censor_Ignores_Clean_Text(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "darn")

	sanitized, found := m.Censor("a perfectly polite sentence")
	req.Equal("a perfectly polite sentence", sanitized)
	req.Empty(found)
}

func Test_Censor_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "darn")

	sanitized, found := m.Censor("DARN")
	req.Equal("****", sanitized)
	req.Len(found, 1)
}

func Test_Censor_Catches_Leet_Speak(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "darn")

	sanitized, found := m.Censor("d4rn right")
	req.Equal("**** right", sanitized)
	req.Len(found, 1)
}

func Test_Censor_Empty_Input(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "darn")

	sanitized, found := m.Censor("")
	req.Empty(sanitized)
	req.Empty(found)
}
