package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_IssueThenValid(t *testing.T) {
	sm := NewSessionManager()
	s, err := sm.Issue(time.Hour)
	require.NoError(t, err)
	assert.True(t, sm.Valid(s.Token))
	assert.False(t, sm.Valid("bogus-token"))
}

func TestSessionManager_RevokeInvalidatesImmediately(t *testing.T) {
	sm := NewSessionManager()
	s, err := sm.Issue(time.Hour)
	require.NoError(t, err)

	sm.Revoke(s.Token)
	assert.False(t, sm.Valid(s.Token))
}

func TestSessionManager_ExpiredTokenIsInvalid(t *testing.T) {
	sm := NewSessionManager()
	s, err := sm.Issue(-time.Second)
	require.NoError(t, err)
	assert.False(t, sm.Valid(s.Token))
}

func TestSessionManager_CleanupExpiredRemovesOnlyExpired(t *testing.T) {
	sm := NewSessionManager()
	live, err := sm.Issue(time.Hour)
	require.NoError(t, err)
	dead, err := sm.Issue(-time.Second)
	require.NoError(t, err)

	sm.CleanupExpired()
	assert.True(t, sm.Valid(live.Token))
	assert.False(t, sm.Valid(dead.Token))
}
