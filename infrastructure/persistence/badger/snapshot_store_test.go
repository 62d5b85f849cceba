package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := OpenSnapshotStore(Config{InMemory: true}, "ownershipmap-autosave", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, []byte(`{"nodes":[{"key":"a"}]}`)))
	require.NoError(t, s.Save(ctx, []byte(`{"nodes":[{"key":"b"}]}`)))

	data, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"nodes":[{"key":"b"}]}`, string(data))

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenSnapshotStore(Config{Path: dir, SyncWrites: true}, "slot", nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []byte(`{}`)))
	require.NoError(t, s.Close())

	reopened, err := OpenSnapshotStore(Config{Path: dir}, "slot", nil)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{}`, string(data))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}
