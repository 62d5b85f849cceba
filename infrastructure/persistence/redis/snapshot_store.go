// Package redis keeps the snapshot slot in a Redis key, letting several
// processes share the last autosaved document
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Options configures the client
type Options struct {
	Addr        string
	DB          int
	Key         string
	DialTimeout time.Duration
}

// SnapshotStore stores the slot under a single key
type SnapshotStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewSnapshotStore connects to Redis and verifies the connection
func NewSnapshotStore(ctx context.Context, opts Options, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.NewStorageError("connect", fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err))
	}
	return &SnapshotStore{client: client, key: opts.Key, logger: logger}, nil
}

// Save replaces the slot contents
func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	s.logger.Debug("Snapshot saved", zap.String("key", s.key), zap.Int("bytes", len(data)))
	return nil
}

// Load returns the slot contents
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.NewStorageError("load snapshot", err)
	}
	return data, true, nil
}

// Clear empties the slot
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return pkgerrors.NewStorageError("clear snapshot", err)
	}
	return nil
}

// Close releases the client
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
