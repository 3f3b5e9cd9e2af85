package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	session := NewSessionID()

	first := s.Save(ctx, Entry{SessionID: session, Command: "chat", Status: StatusOK, Content: "Arr!"})
	require.NotZero(t, first.ID)
	require.False(t, first.CreatedAt.IsZero())
	s.Save(ctx, Entry{SessionID: session, Command: "assistant", Status: StatusError, Content: "run failed"})
	s.Save(ctx, Entry{SessionID: NewSessionID(), Command: "chat", Status: StatusOK, Content: "Ahoy"})

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "Ahoy", all[0].Content)
	require.Equal(t, "Arr!", all[2].Content)

	chats, err := s.List(ctx, Filter{Command: "chat", Limit: 1})
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, "Ahoy", chats[0].Content)

	bySession, err := s.List(ctx, Filter{SessionID: session})
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	require.Equal(t, StatusError, bySession[0].Status)
}

func TestStore_SQLite(t *testing.T) {
	s := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()
	require.True(t, s.Persistent())
	exercise(t, s)
}

func TestStore_MemoryFallback(t *testing.T) {
	s := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	defer s.Close()
	require.False(t, s.Persistent())
	exercise(t, s)
}

func TestStore_NoPath(t *testing.T) {
	s := Open(context.Background(), "")
	require.False(t, s.Persistent())
	exercise(t, s)
	require.NoError(t, s.Close())
}

func TestNewSessionID(t *testing.T) {
	require.NotEqual(t, NewSessionID(), NewSessionID())
	require.Len(t, NewSessionID(), 36)
}
