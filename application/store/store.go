// Package store owns the live graph document and exposes the editing API:
// node and edge mutations with undo/redo history, selection, layouts,
// import/export and the local snapshot slot.
//
// All mutations run under one lock and are atomic: either the document,
// the history and the selection all change together or nothing changes.
// Change events are delivered to subscribers after the lock is released,
// in the order the changes were made.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/layout"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/scheduler"
)

var (
	ErrUnknownLayout   = pkgerrors.Sentinel(pkgerrors.ErrorTypeValidation, "UNKNOWN_LAYOUT", "unknown layout")
	ErrNoFetcher       = pkgerrors.Sentinel(pkgerrors.ErrorTypeUnavailable, "NO_FETCHER", "remote loading is not configured")
	ErrNoSnapshotStore = pkgerrors.Sentinel(pkgerrors.ErrorTypeUnavailable, "NO_SNAPSHOT_STORE", "snapshot storage is not configured")
	ErrInvalidSnapshot = pkgerrors.Sentinel(pkgerrors.ErrorTypeStorage, "INVALID_SNAPSHOT", "stored snapshot is not a valid document")
	ErrEmptyLocation   = pkgerrors.Sentinel(pkgerrors.ErrorTypeValidation, "EMPTY_LOCATION", "location is required")
)

// Reasons attached to graph.replaced events
const (
	ReasonLoad = "load"
	ReasonUndo = "undo"
	ReasonRedo = "redo"
)

// circular layouts fill the unit square, matching the random placement range
const (
	circularCenter = 0.5
	circularRadius = 0.5
)

// Selection holds the selected node and edge keys
type Selection struct {
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

// Empty reports whether nothing is selected
func (s Selection) Empty() bool { return len(s.Nodes) == 0 && len(s.Edges) == 0 }

// LayoutState describes the active layout. Name is empty when idle.
type LayoutState struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// HistoryState exposes the undo/redo availability
type HistoryState struct {
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
}

// EdgeInput describes an edge to add. An empty key is generated.
type EdgeInput struct {
	Key        string
	Source     string
	Target     string
	Attributes valueobjects.Attributes
	Undirected bool
}

// Options configures a Store
type Options struct {
	Config        *config.DomainConfig
	Normalizer    *entities.Normalizer
	Layout        layout.Settings
	Fetcher       ports.DocumentFetcher
	Snapshots     ports.SnapshotStore
	AutosaveDelay time.Duration
	Observer      ports.StoreObserver
	Logger        *zap.Logger
}

// Store is the graph editing orchestrator
type Store struct {
	cfg        *config.DomainConfig
	normalizer *entities.Normalizer
	fetcher    ports.DocumentFetcher
	snapshots  ports.SnapshotStore
	observer   ports.StoreObserver
	logger     *zap.Logger
	tracer     trace.Tracer

	mu        sync.RWMutex
	doc       *aggregates.Document
	history   *History
	selection Selection
	layout    LayoutState
	runner    *layout.Runner
	layoutGen uint64
	fa2       *layout.ForceAtlas2
	pending   []events.DomainEvent
	closed    bool

	autosave *scheduler.Debouncer

	dispatchMu  sync.Mutex
	listenersMu sync.RWMutex
	listeners   map[int]func(events.DomainEvent)
	nextID      int
}

// New creates a store holding an empty document
func New(opts Options) *Store {
	if opts.Config == nil {
		opts.Config = config.DefaultDomainConfig()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = entities.NewNormalizer(opts.Config, nil)
	}
	if opts.Observer == nil {
		opts.Observer = ports.NoopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Store{
		cfg:        opts.Config,
		normalizer: opts.Normalizer,
		fetcher:    opts.Fetcher,
		snapshots:  opts.Snapshots,
		observer:   opts.Observer,
		logger:     opts.Logger,
		tracer:     otel.Tracer("whoownsthis.application.store"),
		doc:        aggregates.NewDocument(aggregates.DefaultOptions(), opts.Config),
		history:    NewHistory(opts.Config.MaxHistory),
		fa2:        layout.NewForceAtlas2(opts.Layout),
		listeners:  make(map[int]func(events.DomainEvent)),
	}
	if opts.Snapshots != nil && opts.AutosaveDelay > 0 {
		s.autosave = scheduler.NewDebouncer(opts.AutosaveDelay, s.runAutosave)
	}
	return s
}

// Subscribe registers a change listener and returns its detach function.
// Listeners run outside the store lock and may call back into the store.
func (s *Store) Subscribe(fn func(event events.DomainEvent)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// ReadNodes runs fn with read access to the document
func (s *Store) ReadNodes(fn func(src filters.NodeSource)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Read runs fn with read access to the document. fn must not retain it.
func (s *Store) Read(fn func(doc *aggregates.Document)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.doc)
}

// Node returns a copy of the node
func (s *Store) Node(key string) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.doc.Node(key)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// Edge returns a copy of the edge
func (s *Store) Edge(key string) (*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.doc.Edge(key)
	if err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

// VisibleNodes returns copies of the nodes accepted by pred, in document order
func (s *Store) VisibleNodes(pred filters.Predicate) []*entities.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entities.Node, 0, s.doc.Order())
	s.doc.ForEachNode(func(n *entities.Node) {
		if pred == nil || pred(n) {
			out = append(out, n.Clone())
		}
	})
	return out
}

// Selection returns the current selection
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySelection(s.selection)
}

// Layout returns the active layout state
func (s *Store) Layout() LayoutState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// HistoryState returns the undo/redo availability
func (s *Store) HistoryState() HistoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyStateLocked()
}

func (s *Store) historyStateLocked() HistoryState {
	undo, redo := s.history.Depths()
	return HistoryState{CanUndo: undo > 0, CanRedo: redo > 0, UndoDepth: undo, RedoDepth: redo}
}

// ExportGraph returns the document in the exchange format
func (s *Store) ExportGraph() aggregates.SerializedGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Export()
}

// ExportJSON encodes the document in the exchange format
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.ToJSON()
}

// AddNode normalizes raw and inserts it. An empty key falls back to the
// raw "key" attribute and then to a generated key.
func (s *Store) AddNode(ctx context.Context, key string, raw valueobjects.Attributes) (string, error) {
	if key == "" {
		if v, ok := raw.Get("key"); ok {
			key, _ = v.AsString()
		}
	}
	raw = raw.Without("key")

	err := s.mutate(ctx, "AddNode", func() error {
		if key == "" {
			key = s.doc.GenerateNodeKey()
		}
		return s.doc.AddNode(key, s.normalizer.Normalize(raw))
	}, attribute.String("node.key", key))
	if err != nil {
		return "", err
	}
	return key, nil
}

// AddEdge inserts an edge between two existing nodes
func (s *Store) AddEdge(ctx context.Context, in EdgeInput) (string, error) {
	var key string
	err := s.mutate(ctx, "AddEdge", func() error {
		var err error
		key, err = s.doc.AddEdge(in.Key, in.Source, in.Target, in.Attributes, in.Undirected)
		return err
	}, attribute.String("edge.source", in.Source), attribute.String("edge.target", in.Target))
	if err != nil {
		return "", err
	}
	return key, nil
}

// UpdateNodeAttributes merges patch into the node's attributes and
// normalizes the result. Coordinates the patch leaves non-numeric keep
// their current values. A null in the patch removes the attribute.
func (s *Store) UpdateNodeAttributes(ctx context.Context, key string, patch valueobjects.Attributes) error {
	return s.mutate(ctx, "UpdateNodeAttributes", func() error {
		current, err := s.doc.NodeAttributes(key)
		if err != nil {
			return err
		}
		merged := current.Flatten().Merge(patch)
		next := s.normalizer.NormalizeWithFallback(merged, current.Position)
		return s.doc.ReplaceNodeAttributes(key, next)
	}, attribute.String("node.key", key))
}

// UpdateEdgeAttributes merges patch into the edge's attributes
func (s *Store) UpdateEdgeAttributes(ctx context.Context, key string, patch valueobjects.Attributes) error {
	return s.mutate(ctx, "UpdateEdgeAttributes", func() error {
		current, err := s.doc.EdgeAttributes(key)
		if err != nil {
			return err
		}
		return s.doc.ReplaceEdgeAttributes(key, current.Merge(patch))
	}, attribute.String("edge.key", key))
}

// DropNode removes a node and its incident edges. The selection loses any
// key that no longer exists.
func (s *Store) DropNode(ctx context.Context, key string) error {
	return s.mutate(ctx, "DropNode", func() error {
		if err := s.doc.DropNode(key); err != nil {
			return err
		}
		s.pruneSelectionLocked()
		return nil
	}, attribute.String("node.key", key))
}

// DropEdge removes a single edge
func (s *Store) DropEdge(ctx context.Context, key string) error {
	return s.mutate(ctx, "DropEdge", func() error {
		if err := s.doc.DropEdge(key); err != nil {
			return err
		}
		s.pruneSelectionLocked()
		return nil
	}, attribute.String("edge.key", key))
}

func (s *Store) pruneSelectionLocked() {
	s.setSelectionLocked(Selection{
		Nodes: existing(s.selection.Nodes, s.doc.HasNode),
		Edges: existing(s.selection.Edges, s.doc.HasEdge),
	})
}

// DeleteSelection drops the selected nodes, with their incident edges,
// then any selected edge that is still present, and clears the selection.
// An empty selection is a no-op.
func (s *Store) DeleteSelection(ctx context.Context) error {
	if s.Selection().Empty() {
		return nil
	}
	return s.mutate(ctx, "DeleteSelection", func() error {
		sel := s.selection
		for _, key := range sel.Nodes {
			if s.doc.HasNode(key) {
				if err := s.doc.DropNode(key); err != nil {
					return err
				}
			}
		}
		for _, key := range sel.Edges {
			if s.doc.HasEdge(key) {
				if err := s.doc.DropEdge(key); err != nil {
					return err
				}
			}
		}
		s.setSelectionLocked(Selection{})
		return nil
	})
}

// SelectNodes replaces the node selection. Unknown keys are ignored.
// The edge selection is left untouched.
func (s *Store) SelectNodes(keys []string) Selection {
	s.mu.Lock()
	sel := copySelection(s.selection)
	sel.Nodes = existing(keys, s.doc.HasNode)
	s.setSelectionLocked(sel)
	out := copySelection(s.selection)
	s.mu.Unlock()
	s.flush()
	return out
}

// SelectEdges replaces the edge selection. Unknown keys are ignored.
// The node selection is left untouched.
func (s *Store) SelectEdges(keys []string) Selection {
	s.mu.Lock()
	sel := copySelection(s.selection)
	sel.Edges = existing(keys, s.doc.HasEdge)
	s.setSelectionLocked(sel)
	out := copySelection(s.selection)
	s.mu.Unlock()
	s.flush()
	return out
}

// Undo restores the latest snapshot. It reports false when there is
// nothing to undo.
func (s *Store) Undo(ctx context.Context) bool {
	return s.travel(ctx, "Undo", ReasonUndo, s.history.Undo)
}

// Redo reapplies the latest undone snapshot. It reports false when there
// is nothing to redo.
func (s *Store) Redo(ctx context.Context) bool {
	return s.travel(ctx, "Redo", ReasonRedo, s.history.Redo)
}

func (s *Store) travel(ctx context.Context, op, reason string, step func(aggregates.SerializedGraph) (aggregates.SerializedGraph, bool)) bool {
	_, span := s.tracer.Start(ctx, "Store."+op)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	snapshot, ok := step(s.doc.Export())
	if ok {
		doc, _ := aggregates.Import(snapshot, s.normalizer, s.cfg)
		s.replaceLocked(doc, reason)
		s.pruneSelectionLocked()
		undo, redo := s.history.Depths()
		s.queueLocked(events.NewHistoryChanged(s.doc.ID(), s.doc.Version(), undo, redo))
	}
	s.mu.Unlock()
	s.flush()

	span.SetAttributes(attribute.Bool("history.applied", ok))
	s.observer.ObserveMutation(op, time.Since(start), nil)
	if ok {
		s.scheduleAutosave()
	}
	return ok
}

// LoadGraphFromJSON replaces the document with the parsed one. Every node
// is normalized and invalid entries are dropped. The selection and the
// history are cleared; a load is not undoable.
func (s *Store) LoadGraphFromJSON(ctx context.Context, data []byte) (aggregates.ImportReport, error) {
	g, err := aggregates.ParseSerializedGraph(data)
	if err != nil {
		s.observer.ObserveMutation("LoadGraph", 0, err)
		return aggregates.ImportReport{}, err
	}
	return s.LoadGraph(ctx, g), nil
}

// LoadGraph replaces the document with an imported copy of g
func (s *Store) LoadGraph(ctx context.Context, g aggregates.SerializedGraph) aggregates.ImportReport {
	_, span := s.tracer.Start(ctx, "Store.LoadGraph")
	defer span.End()
	start := time.Now()

	doc, report := aggregates.Import(g, s.normalizer, s.cfg)

	s.mu.Lock()
	if s.runner != nil {
		s.stopLayoutLocked()
		s.setLayoutLocked(LayoutState{})
	}
	s.history.Clear()
	s.replaceLocked(doc, ReasonLoad)
	s.setSelectionLocked(Selection{})
	s.queueLocked(events.NewHistoryChanged(s.doc.ID(), s.doc.Version(), 0, 0))
	s.mu.Unlock()
	s.flush()

	span.SetAttributes(
		attribute.Int("graph.nodes", report.Nodes),
		attribute.Int("graph.edges", report.Edges),
		attribute.Int("graph.dropped_nodes", report.DroppedNodes),
		attribute.Int("graph.dropped_edges", report.DroppedEdges),
	)
	s.observer.ObserveMutation("LoadGraph", time.Since(start), nil)
	s.logger.Info("Graph loaded",
		zap.Int("nodes", report.Nodes),
		zap.Int("edges", report.Edges),
		zap.Int("droppedNodes", report.DroppedNodes),
		zap.Int("droppedEdges", report.DroppedEdges),
	)
	s.scheduleAutosave()
	return report
}

// LoadGraphFromLocation fetches a document from a URL or file path and loads it
func (s *Store) LoadGraphFromLocation(ctx context.Context, location string) (aggregates.ImportReport, error) {
	if location == "" {
		return aggregates.ImportReport{}, pkgerrors.Derive(ErrEmptyLocation, "location is required")
	}
	if s.fetcher == nil {
		return aggregates.ImportReport{}, pkgerrors.Derive(ErrNoFetcher, "cannot load %q: remote loading is not configured", location)
	}
	data, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		s.logger.Warn("Failed to fetch graph", zap.String("location", location), zap.Error(err))
		return aggregates.ImportReport{}, err
	}
	return s.LoadGraphFromJSON(ctx, data)
}

// RunLayout starts a layout, stopping any running one first.
// forceatlas2 keeps running until stopped; circular applies once.
func (s *Store) RunLayout(ctx context.Context, name string) error {
	_, span := s.tracer.Start(ctx, "Store.RunLayout", trace.WithAttributes(attribute.String("layout.name", name)))
	defer span.End()

	s.mu.Lock()
	switch name {
	case layout.NameForceAtlas2:
		s.stopLayoutLocked()
		s.layoutGen++
		gen := s.layoutGen
		s.runner = layout.StartRunner(s.cfg.LayoutTick, func() bool { return s.layoutTick(gen) }, s.logger)
		s.setLayoutLocked(LayoutState{Name: name, Running: true})
	case layout.NameCircular:
		s.stopLayoutLocked()
		g := layout.Snapshot(s.doc)
		layout.Circular(g, circularCenter, circularCenter, circularRadius)
		s.doc.AssignPositions(g.Positions())
		s.pending = append(s.pending, s.doc.DrainEvents()...)
		s.setLayoutLocked(LayoutState{Name: name})
	default:
		s.mu.Unlock()
		err := pkgerrors.Derive(ErrUnknownLayout, "unknown layout %q", name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.mu.Unlock()
	s.flush()

	s.logger.Debug("Layout started", zap.String("layout", name))
	if name == layout.NameCircular {
		s.scheduleAutosave()
	}
	return nil
}

// StopLayout cancels the running layout. No tick mutates the document
// after it returns.
func (s *Store) StopLayout() {
	s.mu.Lock()
	s.stopLayoutLocked()
	s.setLayoutLocked(LayoutState{})
	s.mu.Unlock()
	s.flush()
	s.scheduleAutosave()
}

func (s *Store) stopLayoutLocked() {
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
	s.layoutGen++
}

func (s *Store) layoutTick(gen uint64) bool {
	s.mu.Lock()
	if s.closed || gen != s.layoutGen {
		s.mu.Unlock()
		return false
	}
	g := layout.Snapshot(s.doc)
	s.fa2.Step(g)
	s.doc.AssignPositions(g.Positions())
	s.pending = append(s.pending, s.doc.DrainEvents()...)
	s.mu.Unlock()
	s.flush()
	return true
}

// SaveSnapshot writes the current document into the snapshot slot
func (s *Store) SaveSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return pkgerrors.Derive(ErrNoSnapshotStore, "snapshot storage is not configured")
	}
	data, err := s.ExportJSON()
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode document").WithCause(err)
	}
	return s.snapshots.Save(ctx, data)
}

// RestoreSnapshot loads the document held in the snapshot slot.
// It reports false when the slot is empty.
func (s *Store) RestoreSnapshot(ctx context.Context) (bool, aggregates.ImportReport, error) {
	if s.snapshots == nil {
		return false, aggregates.ImportReport{}, pkgerrors.Derive(ErrNoSnapshotStore, "snapshot storage is not configured")
	}
	data, ok, err := s.snapshots.Load(ctx)
	if err != nil || !ok {
		return false, aggregates.ImportReport{}, err
	}
	g, err := aggregates.ParseSerializedGraph(data)
	if err != nil {
		return false, aggregates.ImportReport{}, pkgerrors.Derive(ErrInvalidSnapshot, "stored snapshot is not a valid document").WithCause(err)
	}
	return true, s.LoadGraph(ctx, g), nil
}

// ClearSnapshot empties the snapshot slot
func (s *Store) ClearSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return pkgerrors.Derive(ErrNoSnapshotStore, "snapshot storage is not configured")
	}
	if s.autosave != nil {
		s.autosave.Cancel()
	}
	return s.snapshots.Clear(ctx)
}

func (s *Store) scheduleAutosave() {
	if s.autosave != nil {
		s.autosave.Schedule()
	}
}

func (s *Store) runAutosave() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.SaveSnapshot(ctx); err != nil {
		s.logger.Warn("Autosave failed", zap.Error(err))
		return
	}
	s.logger.Debug("Autosaved document")
}

// Close stops the layout, writes any pending autosave and detaches all
// listeners
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLayoutLocked()
	s.mu.Unlock()

	if s.autosave != nil {
		s.autosave.Flush()
		s.autosave.Stop()
	}

	s.listenersMu.Lock()
	s.listeners = make(map[int]func(events.DomainEvent))
	s.listenersMu.Unlock()
}

// mutate runs an undoable change. The pre-mutation snapshot is recorded
// only when fn succeeds, so a failed call leaves no trace.
func (s *Store) mutate(ctx context.Context, op string, fn func() error, attrs ...attribute.KeyValue) error {
	_, span := s.tracer.Start(ctx, "Store."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	before := s.doc.Export()
	err := fn()
	if err == nil {
		s.history.Push(before)
		s.pending = append(s.pending, s.doc.DrainEvents()...)
		undo, redo := s.history.Depths()
		s.queueLocked(events.NewHistoryChanged(s.doc.ID(), s.doc.Version(), undo, redo))
	} else {
		s.doc.DrainEvents()
	}
	s.mu.Unlock()
	s.flush()

	s.observer.ObserveMutation(op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("Mutation rejected", zap.String("operation", op), zap.Error(err))
		return err
	}
	s.scheduleAutosave()
	return nil
}

func (s *Store) replaceLocked(doc *aggregates.Document, reason string) {
	s.doc = doc
	s.doc.DrainEvents()
	s.queueLocked(events.NewGraphReplaced(doc.ID(), doc.Version(), reason, doc.Order(), doc.Size()))
}

func (s *Store) setSelectionLocked(sel Selection) {
	if equalKeys(sel.Nodes, s.selection.Nodes) && equalKeys(sel.Edges, s.selection.Edges) {
		return
	}
	s.selection = copySelection(sel)
	s.queueLocked(events.NewSelectionChanged(s.doc.ID(), s.doc.Version(), s.selection.Nodes, s.selection.Edges))
}

func (s *Store) setLayoutLocked(state LayoutState) {
	s.layout = state
	s.queueLocked(events.NewLayoutChanged(s.doc.ID(), s.doc.Version(), state.Name, state.Running))
}

// queueLocked appends a store event after any document events still
// waiting, keeping the feed in the order the changes happened
func (s *Store) queueLocked(event events.DomainEvent) {
	s.pending = append(s.pending, s.doc.DrainEvents()...)
	s.pending = append(s.pending, event)
}

// flush delivers queued events. Only one goroutine dispatches at a time;
// a caller that finds dispatch busy leaves its events to the active
// dispatcher, which drains until the queue is empty.
func (s *Store) flush() {
	for {
		if !s.dispatchMu.TryLock() {
			return
		}
		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			s.dispatch(batch)
		}
		s.dispatchMu.Unlock()

		s.mu.RLock()
		more := len(s.pending) > 0
		s.mu.RUnlock()
		if !more {
			return
		}
	}
}

func (s *Store) dispatch(batch []events.DomainEvent) {
	s.listenersMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(events.DomainEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, event := range batch {
		for _, fn := range fns {
			s.deliver(fn, event)
		}
	}
}

func (s *Store) deliver(fn func(events.DomainEvent), event events.DomainEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Store listener panicked",
				zap.String("eventType", event.GetEventType()),
				zap.Any("panic", rec),
			)
		}
	}()
	fn(event)
}

func existing(keys []string, has func(string) bool) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || !has(k) {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func copySelection(sel Selection) Selection {
	return Selection{
		Nodes: append(make([]string, 0, len(sel.Nodes)), sel.Nodes...),
		Edges: append(make([]string, 0, len(sel.Edges)), sel.Edges...),
	}
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var _ filters.Graph = (*Store)(nil)
