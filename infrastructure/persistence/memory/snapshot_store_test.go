package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`{"nodes":[]}`)
	require.NoError(t, s.Save(ctx, payload))
	payload[0] = 'X'

	data, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"nodes":[]}`, string(data))

	data[0] = 'Y'
	again, _, _ := s.Load(ctx)
	assert.Equal(t, byte('{'), again[0])

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSnapshotStore()
	assert.ErrorIs(t, s.Save(ctx, []byte("{}")), context.Canceled)
}
