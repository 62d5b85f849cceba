package ports

import (
	"context"
	"time"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

// SnapshotStore is the single named slot holding the last autosaved document
type SnapshotStore interface {
	// Save replaces the slot contents
	Save(ctx context.Context, data []byte) error

	// Load returns the slot contents; ok is false when the slot is empty
	Load(ctx context.Context) (data []byte, ok bool, err error)

	// Clear empties the slot
	Clear(ctx context.Context) error
}

// DocumentFetcher retrieves a document from a URL or a file path
type DocumentFetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// DocumentFiles is the open/save pair behind the file chooser.
// Open reports ok=false when nothing was chosen or the file does not exist.
type DocumentFiles interface {
	Open(ctx context.Context, path string) (data []byte, ok bool, err error)
	Save(ctx context.Context, path string, data []byte) (string, error)
	LastPath() string
}

// EventPublisher exports document change events to an external bus
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// StoreObserver receives timing for each store operation
type StoreObserver interface {
	ObserveMutation(operation string, elapsed time.Duration, err error)
}

// NoopObserver discards observations
type NoopObserver struct{}

// ObserveMutation implements StoreObserver
func (NoopObserver) ObserveMutation(string, time.Duration, error) {}
