package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	// Absent key.
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Round-trip.
	require.NoError(t, s.Set("khata_user", `{"name":"Asha"}`))
	got, err := s.Get("khata_user")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Asha"}`, got)

	// Set overwrites.
	require.NoError(t, s.Set("khata_user", `{"name":"Ravi"}`))
	got, err = s.Get("khata_user")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ravi"}`, got)

	// Delete, then the key is absent again.
	require.NoError(t, s.Delete("khata_user"))
	_, err = s.Get("khata_user")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is a no-op.
	assert.NoError(t, s.Delete("khata_user"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exerciseStore(t, s)
}

func TestSQLite_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")

	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("khata_session_start", "2026-08-30T10:00:00Z"))
	require.NoError(t, s.Close())

	// Reopen runs migrations idempotently and sees the prior write.
	s, err = Open(ctx, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	got, err := s.Get("khata_session_start")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30T10:00:00Z", got)
}
