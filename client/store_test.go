package client

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	sess := validSession()
	require.NoError(t, store.Save(sess))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, got.AccessToken)
	assert.Equal(t, sess.RefreshToken, got.RefreshToken)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, sess.User.ID, got.User.ID)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreCorruptAndPartial(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	_, err := NewFileStore(corrupt).Load()
	assert.ErrorIs(t, err, ErrNoSession)

	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"user":{"id":"u1"}}`), 0o600))
	_, err = NewFileStore(partial).Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	sess := validSession()
	require.NoError(t, store.Save(sess))

	sess.User.Role = "mutated"
	got, err := store.Load()
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.User.Role)
}

func TestManagerBootFromFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(validSession()))

	m, _ := newTestManager(t, store, newStubFetcher())
	state, err := m.Boot(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, Authenticated, state)

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User.ID)
}

func TestManagerBootTokenOnlyFileIsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(Session{AccessToken: "access", RefreshToken: "refresh"}))

	f := newStubFetcher()
	m, clock := newTestManager(t, store, f)
	state, err := m.Boot(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, Unauthenticated, state)

	fetches, _ := f.counts()
	assert.Zero(t, fetches, "a partial session is never sent to the server")
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "partial session is cleared")
	assert.Zero(t, clock.Pending())
}

func TestMemoryStoreRejectsTokenOnly(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(Session{AccessToken: "access"}))
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
