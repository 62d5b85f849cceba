package memory

import (
	"context"
	"sync"
)

// SnapshotStore keeps the snapshot slot in process memory
type SnapshotStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewSnapshotStore creates an empty slot
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save replaces the slot contents
func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(make([]byte, 0, len(data)), data...)
	return nil
}

// Load returns a copy of the slot contents
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

// Clear empties the slot
func (s *SnapshotStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
