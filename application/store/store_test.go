package store

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/layout"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

type recorder struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (r *recorder) record(e events.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.GetEventType())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type memorySnapshots struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func (m *memorySnapshots) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memorySnapshots) Load(context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, false, nil
	}
	return append([]byte(nil), m.data...), true, nil
}

func (m *memorySnapshots) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *memorySnapshots) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type stubFetcher map[string][]byte

func (f stubFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	data, ok := f[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func newStore(t *testing.T, mutate func(*Options)) *Store {
	t.Helper()
	opts := Options{
		Normalizer: entities.NewNormalizer(nil, func() float64 { return 0.25 }),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s := New(opts)
	t.Cleanup(s.Close)
	return s
}

func attrs(values map[string]interface{}) valueobjects.Attributes {
	return valueobjects.NewAttributes(values)
}

func exportJSON(t *testing.T, s *Store) string {
	t.Helper()
	data, err := s.ExportJSON()
	require.NoError(t, err)
	return string(data)
}

func TestHistory_CapAndRedoInvalidation(t *testing.T) {
	h := NewHistory(2)
	snap := func(name string) aggregates.SerializedGraph {
		return aggregates.SerializedGraph{Attributes: attrs(map[string]interface{}{"name": name})}
	}

	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))
	undo, redo := h.Depths()
	assert.Equal(t, 2, undo)
	assert.Equal(t, 0, redo)

	got, ok := h.Undo(snap("d"))
	require.True(t, ok)
	assert.Equal(t, "c", got.Attributes["name"].String())

	_, redo = h.Depths()
	assert.Equal(t, 1, redo)

	h.Push(snap("e"))
	_, redo = h.Depths()
	assert.Equal(t, 0, redo)

	h.Clear()
	_, ok = h.Undo(snap("x"))
	assert.False(t, ok)
	_, ok = h.Redo(snap("x"))
	assert.False(t, ok)
}

func TestStore_AddNodeNormalizes(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()

	key, err := s.AddNode(ctx, "p1", attrs(map[string]interface{}{"kind": "project", "size": 3}))
	require.NoError(t, err)
	assert.Equal(t, "p1", key)

	n, err := s.Node("p1")
	require.NoError(t, err)
	assert.Equal(t, entities.ShapeSquare, n.Shape())
	assert.Equal(t, "square.header", n.Variant())
	assert.Equal(t, 14.0, n.Size())
	assert.Equal(t, 0.25, n.Position().X())
}

func TestStore_AddNodeKeys(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()

	key, err := s.AddNode(ctx, "", attrs(map[string]interface{}{"key": "from-attrs"}))
	require.NoError(t, err)
	assert.Equal(t, "from-attrs", key)
	n, err := s.Node(key)
	require.NoError(t, err)
	_, ok := n.Lookup("key")
	assert.False(t, ok)

	generated, err := s.AddNode(ctx, "", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^node:`, generated)

	_, err = s.AddNode(ctx, "from-attrs", nil)
	assert.True(t, errors.Is(err, aggregates.ErrDuplicateKey))
	assert.Equal(t, 2, s.HistoryState().UndoDepth)
}

func TestStore_UndoRedo(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()

	_, err := s.AddNode(ctx, "a", attrs(map[string]interface{}{"kind": "person"}))
	require.NoError(t, err)
	docA := exportJSON(t, s)

	_, err = s.AddNode(ctx, "b", attrs(map[string]interface{}{"kind": "team"}))
	require.NoError(t, err)
	docB := exportJSON(t, s)

	require.True(t, s.Undo(ctx))
	assert.JSONEq(t, docA, exportJSON(t, s))
	assert.Equal(t, HistoryState{CanUndo: true, CanRedo: true, UndoDepth: 1, RedoDepth: 1}, s.HistoryState())

	require.True(t, s.Redo(ctx))
	assert.JSONEq(t, docB, exportJSON(t, s))

	require.True(t, s.Undo(ctx))
	require.True(t, s.Undo(ctx))
	assert.False(t, s.Undo(ctx))
	assert.Equal(t, 0, len(s.ExportGraph().Nodes))
}

func TestStore_UndoOnEmptyHistoryIsNoop(t *testing.T) {
	s := newStore(t, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)

	before := exportJSON(t, s)
	assert.False(t, s.Undo(context.Background()))
	assert.False(t, s.Redo(context.Background()))
	assert.JSONEq(t, before, exportJSON(t, s))
	assert.Empty(t, rec.types())
}

func TestStore_HistoryCap(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxHistory = 3
	s := newStore(t, func(o *Options) { o.Config = cfg })
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.AddNode(ctx, key, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.HistoryState().UndoDepth)

	for s.Undo(ctx) {
	}
	// the oldest retained snapshot is the one taken before "c" was added
	assert.ElementsMatch(t, []string{"a", "b"}, nodeKeys(s))
}

func nodeKeys(s *Store) []string {
	var keys []string
	for _, n := range s.ExportGraph().Nodes {
		keys = append(keys, n.Key)
	}
	return keys
}

func TestStore_FailedMutationLeavesNoTrace(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	before := exportJSON(t, s)

	_, err = s.AddEdge(ctx, EdgeInput{Source: "a", Target: "missing"})
	assert.True(t, errors.Is(err, aggregates.ErrMissingEndpoint))

	err = s.UpdateNodeAttributes(ctx, "missing", attrs(map[string]interface{}{"x": 1}))
	assert.True(t, errors.Is(err, aggregates.ErrNodeNotFound))

	err = s.UpdateEdgeAttributes(ctx, "missing", nil)
	assert.True(t, errors.Is(err, aggregates.ErrEdgeNotFound))

	assert.JSONEq(t, before, exportJSON(t, s))
	assert.Equal(t, 1, s.HistoryState().UndoDepth)
}

func TestStore_UpdateNodeAttributes(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", attrs(map[string]interface{}{"kind": "person", "x": 5, "y": 6, "team": "core"}))
	require.NoError(t, err)

	err = s.UpdateNodeAttributes(ctx, "a", valueobjects.Attributes{
		"x":      valueobjects.StringValue("oops"),
		"team":   valueobjects.NullValue(),
		"status": valueobjects.StringValue("active"),
		"kind":   valueobjects.StringValue("project"),
	})
	require.NoError(t, err)

	n, err := s.Node("a")
	require.NoError(t, err)
	assert.Equal(t, 5.0, n.Position().X())
	assert.Equal(t, 6.0, n.Position().Y())
	_, ok := n.Lookup("team")
	assert.False(t, ok)
	status, ok := n.Lookup("status")
	require.True(t, ok)
	assert.Equal(t, "active", status.String())
	// explicit fields survive a kind change
	assert.Equal(t, "project", n.Kind())
	assert.Equal(t, "circle.person", n.Variant())
}

func TestStore_UpdateEdgeAttributes(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	_, err = s.AddNode(ctx, "b", nil)
	require.NoError(t, err)
	key, err := s.AddEdge(ctx, EdgeInput{Key: "e1", Source: "a", Target: "b", Attributes: attrs(map[string]interface{}{"type": "owns"})})
	require.NoError(t, err)
	assert.Equal(t, "e1", key)

	require.NoError(t, s.UpdateEdgeAttributes(ctx, "e1", attrs(map[string]interface{}{"weight": 3})))
	e, err := s.Edge("e1")
	require.NoError(t, err)
	assert.Equal(t, "owns", e.Type())
	w, ok := e.Weight()
	require.True(t, ok)
	assert.Equal(t, 3.0, w)
}

func TestStore_DeleteSelection(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.AddNode(ctx, k, nil)
		require.NoError(t, err)
	}
	_, err := s.AddEdge(ctx, EdgeInput{Key: "ab", Source: "a", Target: "b"})
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, EdgeInput{Key: "bc", Source: "b", Target: "c"})
	require.NoError(t, err)

	s.SelectNodes([]string{"a", "ghost"})
	sel := s.SelectEdges([]string{"ab", "bc"})
	assert.Equal(t, []string{"a"}, sel.Nodes)
	assert.Equal(t, []string{"ab", "bc"}, sel.Edges)

	depth := s.HistoryState().UndoDepth
	require.NoError(t, s.DeleteSelection(ctx))

	g := s.ExportGraph()
	assert.ElementsMatch(t, []string{"b", "c"}, nodeKeys(s))
	assert.Empty(t, g.Edges)
	assert.True(t, s.Selection().Empty())
	assert.Equal(t, depth+1, s.HistoryState().UndoDepth)

	require.NoError(t, s.DeleteSelection(ctx))
	assert.Equal(t, depth+1, s.HistoryState().UndoDepth)

	require.True(t, s.Undo(ctx))
	assert.Len(t, s.ExportGraph().Edges, 2)
}

func TestStore_DropNodeAndEdge(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.AddNode(ctx, k, nil)
		require.NoError(t, err)
	}
	_, err := s.AddEdge(ctx, EdgeInput{Key: "ab", Source: "a", Target: "b"})
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, EdgeInput{Key: "bc", Source: "b", Target: "c"})
	require.NoError(t, err)
	s.SelectNodes([]string{"a", "c"})
	s.SelectEdges([]string{"ab"})

	require.NoError(t, s.DropNode(ctx, "a"))
	assert.ElementsMatch(t, []string{"b", "c"}, nodeKeys(s))
	assert.Len(t, s.ExportGraph().Edges, 1)
	assert.Equal(t, Selection{Nodes: []string{"c"}, Edges: []string{}}, s.Selection())

	require.NoError(t, s.DropEdge(ctx, "bc"))
	assert.Empty(t, s.ExportGraph().Edges)

	err = s.DropNode(ctx, "ghost")
	assert.True(t, errors.Is(err, aggregates.ErrNodeNotFound))
	err = s.DropEdge(ctx, "ghost")
	assert.True(t, errors.Is(err, aggregates.ErrEdgeNotFound))

	require.True(t, s.Undo(ctx))
	require.True(t, s.Undo(ctx))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, nodeKeys(s))
	assert.Len(t, s.ExportGraph().Edges, 2)
}

func TestStore_UndoPrunesSelection(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	s.SelectNodes([]string{"a"})

	require.True(t, s.Undo(ctx))
	assert.Empty(t, s.Selection().Nodes)
}

func TestStore_LoadGraphFromJSON(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "old", nil)
	require.NoError(t, err)
	s.SelectNodes([]string{"old"})

	report, err := s.LoadGraphFromJSON(ctx, []byte(`{"nodes":[{"key":"a","attributes":{"kind":"project"}}],"edges":[{"source":"a","target":"missing"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Nodes)
	assert.Equal(t, 1, report.DroppedEdges)

	g := s.ExportGraph()
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.Equal(t, aggregates.DefaultOptions(), g.Options)
	assert.True(t, s.Selection().Empty())
	assert.Equal(t, HistoryState{}, s.HistoryState())

	n, err := s.Node("a")
	require.NoError(t, err)
	assert.Equal(t, entities.ShapeSquare, n.Shape())

	_, err = s.LoadGraphFromJSON(ctx, []byte(`{not json`))
	assert.Error(t, err)
	assert.Len(t, s.ExportGraph().Nodes, 1)
}

func TestStore_LoadGraphFromLocation(t *testing.T) {
	ctx := context.Background()

	s := newStore(t, nil)
	_, err := s.LoadGraphFromLocation(ctx, "http://example.test/g.json")
	assert.True(t, errors.Is(err, ErrNoFetcher))

	s = newStore(t, func(o *Options) {
		o.Fetcher = stubFetcher{"graph.json": []byte(`{"nodes":[{"key":"a"},{"key":"b"}]}`)}
	})
	report, err := s.LoadGraphFromLocation(ctx, "graph.json")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Nodes)

	_, err = s.LoadGraphFromLocation(ctx, "missing.json")
	assert.Error(t, err)
	assert.Len(t, s.ExportGraph().Nodes, 2)

	_, err = s.LoadGraphFromLocation(ctx, "")
	assert.True(t, errors.Is(err, ErrEmptyLocation))
}

func TestStore_EventsInOrder(t *testing.T) {
	s := newStore(t, nil)
	rec := &recorder{}
	s.Subscribe(rec.record)
	ctx := context.Background()

	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	_, err = s.AddNode(ctx, "b", nil)
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, EdgeInput{Key: "ab", Source: "a", Target: "b"})
	require.NoError(t, err)
	s.SelectNodes([]string{"a"})

	assert.Equal(t, []string{
		events.TypeNodeAdded, events.TypeHistoryChanged,
		events.TypeNodeAdded, events.TypeHistoryChanged,
		events.TypeEdgeAdded, events.TypeHistoryChanged,
		events.TypeSelectionChanged,
	}, rec.types())

	rec.reset()
	require.NoError(t, s.DeleteSelection(ctx))
	assert.Equal(t, []string{
		events.TypeEdgeDropped, events.TypeNodeDropped,
		events.TypeSelectionChanged, events.TypeHistoryChanged,
	}, rec.types())

	rec.reset()
	require.True(t, s.Undo(ctx))
	assert.Equal(t, []string{events.TypeGraphReplaced, events.TypeHistoryChanged}, rec.types())
}

func TestStore_ListenerMayCallBack(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()

	var once sync.Once
	s.Subscribe(func(e events.DomainEvent) {
		if e.GetEventType() == events.TypeNodeAdded {
			once.Do(func() { s.SelectNodes([]string{"a"}) })
		}
	})

	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, s.Selection().Nodes)
}

func TestStore_ListenerPanicIsContained(t *testing.T) {
	s := newStore(t, nil)
	rec := &recorder{}
	s.Subscribe(func(events.DomainEvent) { panic("boom") })
	s.Subscribe(rec.record)

	_, err := s.AddNode(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Contains(t, rec.types(), events.TypeNodeAdded)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := newStore(t, nil)
	rec := &recorder{}
	detach := s.Subscribe(rec.record)
	detach()
	detach()

	_, err := s.AddNode(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.types())
}

func TestStore_CircularLayout(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c", "d"} {
		_, err := s.AddNode(ctx, k, nil)
		require.NoError(t, err)
	}
	depth := s.HistoryState().UndoDepth

	require.NoError(t, s.RunLayout(ctx, layout.NameCircular))
	assert.Equal(t, LayoutState{Name: layout.NameCircular}, s.Layout())
	assert.Equal(t, depth, s.HistoryState().UndoDepth)

	a, err := s.Node("a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a.Position().X(), 1e-9)
	assert.InDelta(t, 0.5, a.Position().Y(), 1e-9)
}

func TestStore_ForceAtlas2StopsPromptly(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.LayoutTick = time.Millisecond
	s := newStore(t, func(o *Options) { o.Config = cfg })
	ctx := context.Background()

	_, err := s.AddNode(ctx, "a", attrs(map[string]interface{}{"x": 0, "y": 0}))
	require.NoError(t, err)
	_, err = s.AddNode(ctx, "b", attrs(map[string]interface{}{"x": 10, "y": 0}))
	require.NoError(t, err)
	_, err = s.AddEdge(ctx, EdgeInput{Source: "a", Target: "b"})
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec.record)

	require.NoError(t, s.RunLayout(ctx, layout.NameForceAtlas2))
	assert.Equal(t, LayoutState{Name: layout.NameForceAtlas2, Running: true}, s.Layout())

	assert.Eventually(t, func() bool {
		for _, typ := range rec.types() {
			if typ == events.TypePositionsUpdated {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	s.StopLayout()
	assert.Equal(t, LayoutState{}, s.Layout())
	frozen := exportJSON(t, s)
	assert.Never(t, func() bool { return exportJSON(t, s) != frozen }, 30*time.Millisecond, 3*time.Millisecond)
}

func TestStore_RunLayoutReplacesRunning(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.LayoutTick = time.Millisecond
	s := newStore(t, func(o *Options) { o.Config = cfg })
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)

	require.NoError(t, s.RunLayout(ctx, layout.NameForceAtlas2))
	require.NoError(t, s.RunLayout(ctx, layout.NameCircular))
	assert.Equal(t, LayoutState{Name: layout.NameCircular}, s.Layout())

	frozen := exportJSON(t, s)
	assert.Never(t, func() bool { return exportJSON(t, s) != frozen }, 20*time.Millisecond, 2*time.Millisecond)

	err = s.RunLayout(ctx, "spiral")
	assert.True(t, errors.Is(err, ErrUnknownLayout))
	assert.Equal(t, LayoutState{Name: layout.NameCircular}, s.Layout())
}

func TestStore_Snapshots(t *testing.T) {
	ctx := context.Background()

	s := newStore(t, nil)
	assert.True(t, errors.Is(s.SaveSnapshot(ctx), ErrNoSnapshotStore))

	slot := &memorySnapshots{}
	s = newStore(t, func(o *Options) { o.Snapshots = slot })

	ok, _, err := s.RestoreSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx))
	saved := exportJSON(t, s)

	_, err = s.AddNode(ctx, "b", nil)
	require.NoError(t, err)

	ok, report, err := s.RestoreSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, report.Nodes)
	assert.JSONEq(t, saved, exportJSON(t, s))

	require.NoError(t, s.ClearSnapshot(ctx))
	ok, _, err = s.RestoreSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Autosave(t *testing.T) {
	slot := &memorySnapshots{}
	s := newStore(t, func(o *Options) {
		o.Snapshots = slot
		o.AutosaveDelay = 5 * time.Millisecond
	})
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, err := s.AddNode(ctx, k, nil)
		require.NoError(t, err)
	}

	want := exportJSON(t, s)
	assert.Eventually(t, func() bool {
		data, ok, err := slot.Load(ctx)
		return err == nil && ok && jsonEqual(want, string(data))
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, slot.saveCount(), 1)
}

func TestStore_VisibleNodes(t *testing.T) {
	s := newStore(t, nil)
	ctx := context.Background()
	_, err := s.AddNode(ctx, "a", attrs(map[string]interface{}{"kind": "person"}))
	require.NoError(t, err)
	_, err = s.AddNode(ctx, "b", attrs(map[string]interface{}{"kind": "team"}))
	require.NoError(t, err)

	all := s.VisibleNodes(nil)
	assert.Len(t, all, 2)

	people := s.VisibleNodes(func(n filters.Subject) bool { return n.Key() == "a" })
	require.Len(t, people, 1)
	assert.Equal(t, "a", people[0].Key())
}

func jsonEqual(a, b string) bool {
	var x, y interface{}
	if json.Unmarshal([]byte(a), &x) != nil || json.Unmarshal([]byte(b), &y) != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}
