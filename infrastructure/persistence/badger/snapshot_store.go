// Package badger keeps the snapshot slot in an embedded BadgerDB
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Config holds the database location
type Config struct {
	// Path is the database directory; ignored when InMemory is set
	Path       string
	InMemory   bool
	SyncWrites bool
}

// zapLogger adapts zap to badger's logger interface
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// Open opens the database described by cfg
func Open(cfg Config, logger *zap.Logger) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(zapLogger{sugar: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// SnapshotStore stores the slot under a single key
type SnapshotStore struct {
	db     *badger.DB
	key    []byte
	owned  bool
	logger *zap.Logger
}

// NewSnapshotStore wraps an open database. The caller keeps ownership of db.
func NewSnapshotStore(db *badger.DB, key string, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{db: db, key: []byte(key), logger: logger}
}

// OpenSnapshotStore opens a database and returns a store that closes it
func OpenSnapshotStore(cfg Config, key string, logger *zap.Logger) (*SnapshotStore, error) {
	db, err := Open(cfg, logger)
	if err != nil {
		return nil, pkgerrors.NewStorageError("open", err)
	}
	s := NewSnapshotStore(db, key, logger)
	s.owned = true
	return s, nil
}

// Save replaces the slot contents
func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
	if err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	s.logger.Debug("Snapshot saved", zap.Int("bytes", len(data)))
	return nil
}

// Load returns the slot contents
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.NewStorageError("load snapshot", err)
	}
	return data, true, nil
}

// Clear empties the slot
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key)
	})
	if err != nil {
		return pkgerrors.NewStorageError("clear snapshot", err)
	}
	return nil
}

// Close closes the database if the store opened it
func (s *SnapshotStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
