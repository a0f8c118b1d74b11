package identity

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store, err := NewSessionStore(path)
	require.NoError(t, err)

	// Empty store loads as absent, not as an error.
	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	session := &Session{
		AccessToken:  "tok",
		TokenType:    "bearer",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:         User{ID: "u-1", Email: "ada@example.com"},
	}
	require.NoError(t, store.Save(session))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, session, loaded)

	require.NoError(t, store.Clear())
	loaded, err = store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Clearing twice stays silent.
	require.NoError(t, store.Clear())
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()

	s := &Session{ExpiresAt: now.Add(time.Minute)}
	require.False(t, s.Expired(now))
	require.True(t, s.Expired(now.Add(2*time.Minute)))

	// No expiry recorded means the session is kept.
	require.False(t, (&Session{}).Expired(now))
}
