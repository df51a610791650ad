package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStore_FreshStoreDefaultsToZero(t *testing.T) {
	store := newTestStore(t)

	zxid, err := store.LastLoggedZxid()
	require.NoError(t, err)
	assert.Equal(t, int64(0), zxid)

	epoch, err := store.CurrentEpoch()
	require.NoError(t, err)
	assert.Equal(t, int64(0), epoch)

	accepted, err := store.AcceptedEpoch()
	require.NoError(t, err)
	assert.Equal(t, int64(0), accepted)
}

func TestBoltStore_RoundTrips(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetLastLoggedZxid(0x500000007))
	require.NoError(t, store.SetCurrentEpoch(5))
	require.NoError(t, store.SetAcceptedEpoch(6))

	zxid, err := store.LastLoggedZxid()
	require.NoError(t, err)
	assert.Equal(t, int64(0x500000007), zxid)

	epoch, err := store.CurrentEpoch()
	require.NoError(t, err)
	assert.Equal(t, int64(5), epoch)

	accepted, err := store.AcceptedEpoch()
	require.NoError(t, err)
	assert.Equal(t, int64(6), accepted)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetLastLoggedZxid(42))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	zxid, err := reopened.LastLoggedZxid()
	require.NoError(t, err)
	assert.Equal(t, int64(42), zxid)
}

func TestNewBoltStore_InvalidPath(t *testing.T) {
	_, err := NewBoltStore("/nonexistent-dir/sub/test.db")
	assert.Error(t, err)
}
