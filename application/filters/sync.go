package filters

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/scheduler"
)

// Graph is the document side of the sync: read access to nodes plus the
// change event feed
type Graph interface {
	ReadNodes(fn func(src NodeSource))
	Subscribe(fn func(event events.DomainEvent)) func()
}

// RecomputeHook observes each completed recomputation
type RecomputeHook func(elapsed time.Duration, groups int)

// Sync keeps the published facet index in step with the document and the
// filter criteria. Bursts of changes coalesce into one recomputation.
type Sync struct {
	graph   Graph
	state   *State
	indexer *Indexer
	logger  *zap.Logger
	hook    RecomputeHook

	debouncer *scheduler.Debouncer

	mu       sync.Mutex
	detached bool
	unsub    []func()
}

// Attach wires a Sync and schedules an initial recomputation
func Attach(graph Graph, state *State, indexer *Indexer, delay time.Duration, logger *zap.Logger, hook RecomputeHook) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sync{
		graph:   graph,
		state:   state,
		indexer: indexer,
		logger:  logger,
		hook:    hook,
	}
	s.debouncer = scheduler.NewDebouncer(delay, s.Recompute)

	s.unsub = append(s.unsub,
		graph.Subscribe(func(event events.DomainEvent) {
			if events.IsStructural(event) {
				s.debouncer.Schedule()
			}
		}),
		state.Subscribe(func(kind ChangeKind) {
			if kind == ChangeCriteria {
				s.debouncer.Schedule()
			}
		}),
	)

	s.debouncer.Schedule()
	return s
}

// Recompute rediscovers facet keys and rebuilds the index now
func (s *Sync) Recompute() {
	if s.isDetached() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Facet sync failed", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	var groups []FacetGroup
	s.graph.ReadNodes(func(src NodeSource) {
		keys := s.indexer.DiscoverFacetKeys(src, 0)
		groups = s.indexer.BuildFacetIndex(src, keys, s.state.Factory())
	})

	if !s.publish(groups) {
		return
	}

	elapsed := time.Since(start)
	s.logger.Debug("Facets recomputed",
		zap.Int("groups", len(groups)),
		zap.Duration("elapsed", elapsed),
	)
	if s.hook != nil {
		s.hook(elapsed, len(groups))
	}
}

// publish hands groups to the filter state unless detached. The lock spans
// the check and the hand-off so nothing is published once Detach returns.
func (s *Sync) publish(groups []FacetGroup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return false
	}
	s.state.SetAvailableFacets(groups)
	return true
}

// Flush runs a pending recomputation immediately
func (s *Sync) Flush() bool {
	return s.debouncer.Flush()
}

// Detach unsubscribes and cancels any pending recomputation. No
// recomputation is published afterwards.
func (s *Sync) Detach() {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	s.debouncer.Stop()
	for _, fn := range unsub {
		fn()
	}
}

func (s *Sync) isDetached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}
