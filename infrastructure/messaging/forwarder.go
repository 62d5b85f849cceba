// Package messaging forwards store change events to an external publisher
// off the store's dispatch path.
package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

// EventSource is anything that broadcasts domain events
type EventSource interface {
	Subscribe(fn func(event events.DomainEvent)) func()
}

// ForwarderConfig tunes buffering
type ForwarderConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	Timeout       time.Duration
}

// DefaultForwarderConfig returns the production buffering settings
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		BufferSize:    1024,
		BatchSize:     10,
		FlushInterval: 250 * time.Millisecond,
		Timeout:       10 * time.Second,
	}
}

// Forwarder queues structural change events and publishes them in batches
// from a single background goroutine. Events are dropped, with a warning,
// when the buffer is full.
type Forwarder struct {
	publisher ports.EventPublisher
	cfg       ForwarderConfig
	queue     chan events.DomainEvent
	detach    func()
	stopOnce  sync.Once
	done      chan struct{}
	logger    *zap.Logger

	closeMu sync.RWMutex
	closed  bool

	mu      sync.Mutex
	dropped int
	failed  int
}

// StartForwarder subscribes to source and starts the publish loop
func StartForwarder(source EventSource, publisher ports.EventPublisher, cfg ForwarderConfig, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultForwarderConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	f := &Forwarder{
		publisher: publisher,
		cfg:       cfg,
		queue:     make(chan events.DomainEvent, cfg.BufferSize),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go f.loop()
	f.detach = source.Subscribe(f.enqueue)
	return f
}

func (f *Forwarder) enqueue(event events.DomainEvent) {
	if !events.IsStructural(event) {
		return
	}
	f.closeMu.RLock()
	defer f.closeMu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- event:
	default:
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		f.logger.Warn("Event export buffer full, dropping event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
		)
	}
}

func (f *Forwarder) loop() {
	defer close(f.done)
	ticker := time.NewTicker(f.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]events.DomainEvent, 0, f.cfg.BatchSize)
	for {
		select {
		case event, ok := <-f.queue:
			if !ok {
				f.publish(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= f.cfg.BatchSize {
				f.publish(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				f.publish(batch)
				batch = batch[:0]
			}
		}
	}
}

func (f *Forwarder) publish(batch []events.DomainEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
	defer cancel()

	start := time.Now()
	if err := f.publisher.PublishBatch(ctx, batch); err != nil {
		f.mu.Lock()
		f.failed += len(batch)
		f.mu.Unlock()
		f.logger.Error("Failed to export events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
		return
	}
	f.logger.Debug("Events exported",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stats returns the number of dropped and failed events
func (f *Forwarder) Stats() (dropped, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped, f.failed
}

// Stop unsubscribes, publishes whatever is queued and waits for the loop
func (f *Forwarder) Stop() {
	f.stopOnce.Do(func() {
		f.detach()
		f.closeMu.Lock()
		f.closed = true
		close(f.queue)
		f.closeMu.Unlock()
	})
	<-f.done
}
