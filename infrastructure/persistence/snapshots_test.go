package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
)

func TestNewSnapshotStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.Snapshot
		wantNil bool
		wantErr bool
	}{
		{name: "none", cfg: config.Snapshot{Backend: BackendNone, Key: "k"}, wantNil: true},
		{name: "memory", cfg: config.Snapshot{Backend: BackendMemory, Key: "k"}},
		{name: "badger", cfg: config.Snapshot{Backend: BackendBadger, Key: "k", BadgerPath: filepath.Join(t.TempDir(), "db")}},
		{name: "redis", cfg: config.Snapshot{Backend: BackendRedis, Key: "k", RedisAddr: mr.Addr()}},
		{name: "unknown", cfg: config.Snapshot{Backend: "etcd", Key: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, cleanup, err := NewSnapshotStore(ctx, tt.cfg, nil)
			require.NotNil(t, cleanup)
			defer cleanup()

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, store)
				return
			}
			require.NotNil(t, store)

			require.NoError(t, store.Save(ctx, []byte(`{"nodes":[]}`)))
			data, ok, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"nodes":[]}`, string(data))
		})
	}
}
