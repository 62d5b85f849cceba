package websocket

import (
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

// Message types beyond the store's own event types
const (
	TypeConnected      = "connection.established"
	TypeFacetsUpdated  = "filters.facets_updated"
	TypeFilterCriteria = "filters.criteria_changed"
)

// EventSource broadcasts store change events
type EventSource interface {
	Subscribe(fn func(event events.DomainEvent)) func()
}

// Broadcaster relays store events and filter state changes to the hub
type Broadcaster struct {
	hub    *Hub
	logger *zap.Logger
	unsub  []func()
}

// NewBroadcaster subscribes to the store and the filter state. Store events
// go out under their own type; filter changes carry the current filter view.
func NewBroadcaster(hub *Hub, source EventSource, state *filters.State, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broadcaster{hub: hub, logger: logger}

	b.unsub = append(b.unsub, source.Subscribe(func(event events.DomainEvent) {
		b.send(event.GetEventType(), event)
	}))
	if state != nil {
		b.unsub = append(b.unsub, state.Subscribe(func(kind filters.ChangeKind) {
			msgType := TypeFilterCriteria
			if kind == filters.ChangeFacets {
				msgType = TypeFacetsUpdated
			}
			b.send(msgType, state.View())
		}))
	}
	return b
}

func (b *Broadcaster) send(msgType string, data interface{}) {
	if err := b.hub.Broadcast(msgType, data); err != nil {
		b.logger.Debug("Live feed message not queued",
			zap.String("type", msgType),
			zap.Error(err),
		)
	}
}

// Close detaches from the store and the filter state
func (b *Broadcaster) Close() {
	for _, fn := range b.unsub {
		fn()
	}
	b.unsub = nil
}
