package invitelink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "invite-key-for-tests-0123456789abcdef"

func TestIssueVerify(t *testing.T) {
	s, err := NewSigner(testKey, time.Hour)
	require.NoError(t, err)

	tok, err := s.Issue("ev1", "slot-a")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	assert.NoError(t, s.Verify(tok, "ev1", "slot-a"))
	assert.ErrorIs(t, s.Verify(tok, "ev1", "slot-b"), ErrInvalidToken)
	assert.ErrorIs(t, s.Verify(tok, "ev2", "slot-a"), ErrInvalidToken)

	c, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Claims{EventID: "ev1", SlotID: "slot-a"}, c)
}

func TestVerify_Rejects(t *testing.T) {
	s, err := NewSigner(testKey, 0)
	require.NoError(t, err)
	other, err := NewSigner("a-different-invite-key-0123456789abc", 0)
	require.NoError(t, err)

	foreign, err := other.Issue("ev1", "slot-a")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Verify("", "ev1", "slot-a"), ErrInvalidToken)
	assert.ErrorIs(t, s.Verify("not-a-token", "ev1", "slot-a"), ErrInvalidToken)
	assert.ErrorIs(t, s.Verify(foreign, "ev1", "slot-a"), ErrInvalidToken)
}

func TestNewSigner_ShortKey(t *testing.T) {
	_, err := NewSigner("short", time.Hour)
	assert.Error(t, err)
}
