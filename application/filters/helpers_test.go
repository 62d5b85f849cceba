package filters

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

var normalizer = entities.NewNormalizer(nil, func() float64 { return 0.5 })

func makeNode(t *testing.T, key string, raw map[string]interface{}) *entities.Node {
	t.Helper()
	n, err := entities.NewNode(key, normalizer.Normalize(valueobjects.NewAttributes(raw)))
	require.NoError(t, err)
	return n
}

func makeDocument(t *testing.T, nodes map[string]map[string]interface{}, order ...string) *aggregates.Document {
	t.Helper()
	doc := aggregates.NewDocument(aggregates.DefaultOptions(), nil)
	for _, key := range order {
		require.NoError(t, doc.AddNode(key, normalizer.Normalize(valueobjects.NewAttributes(nodes[key]))))
	}
	doc.DrainEvents()
	return doc
}

// fakeGraph is a locked document with a synchronous event feed
type fakeGraph struct {
	mu        sync.Mutex
	doc       *aggregates.Document
	listeners map[int]func(events.DomainEvent)
	next      int
	reads     int
}

func newFakeGraph(doc *aggregates.Document) *fakeGraph {
	return &fakeGraph{doc: doc, listeners: map[int]func(events.DomainEvent){}}
}

func (g *fakeGraph) ReadNodes(fn func(src NodeSource)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	fn(g.doc)
}

func (g *fakeGraph) Subscribe(fn func(events.DomainEvent)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	g.listeners[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *fakeGraph) mutate(fn func(doc *aggregates.Document)) {
	g.mu.Lock()
	fn(g.doc)
	evs := g.doc.DrainEvents()
	fns := make([]func(events.DomainEvent), 0, len(g.listeners))
	for _, l := range g.listeners {
		fns = append(fns, l)
	}
	g.mu.Unlock()

	for _, ev := range evs {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

func (g *fakeGraph) readCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads
}
