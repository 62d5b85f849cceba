// Package persistence selects the snapshot slot backend named in the
// configuration.
package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
	badgerstore "github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/badger"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/memory"
	redisstore "github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/redis"
)

// Backend names
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// NewSnapshotStore opens the configured backend. The returned store is nil
// for the "none" backend. The cleanup function is always safe to call.
func NewSnapshotStore(ctx context.Context, cfg config.Snapshot, logger *zap.Logger) (ports.SnapshotStore, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() {}

	switch cfg.Backend {
	case BackendNone, "":
		logger.Info("Snapshot slot disabled")
		return nil, noop, nil

	case BackendMemory:
		logger.Info("Using in-memory snapshot slot")
		return memory.NewSnapshotStore(), noop, nil

	case BackendBadger:
		store, err := badgerstore.OpenSnapshotStore(badgerstore.Config{Path: cfg.BadgerPath, SyncWrites: true}, cfg.Key, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using BadgerDB snapshot slot", zap.String("path", cfg.BadgerPath))
		return store, closer(store.Close, "badger", logger), nil

	case BackendRedis:
		store, err := redisstore.NewSnapshotStore(ctx, redisstore.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
			Key:  cfg.Key,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("Using Redis snapshot slot", zap.String("addr", cfg.RedisAddr))
		return store, closer(store.Close, "redis", logger), nil

	default:
		return nil, noop, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

func closer(closeFn func() error, name string, logger *zap.Logger) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close snapshot backend", zap.String("backend", name), zap.Error(err))
		}
	}
}
