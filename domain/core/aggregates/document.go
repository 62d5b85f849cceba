package aggregates

import (
	"strings"

	"github.com/google/uuid"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Structural errors, matched with errors.Is
var (
	ErrDuplicateKey    = pkgerrors.Sentinel(pkgerrors.ErrorTypeConflict, "DUPLICATE_KEY", "key already exists")
	ErrNodeNotFound    = pkgerrors.Sentinel(pkgerrors.ErrorTypeNotFound, "NODE_NOT_FOUND", "node not found")
	ErrEdgeNotFound    = pkgerrors.Sentinel(pkgerrors.ErrorTypeNotFound, "EDGE_NOT_FOUND", "edge not found")
	ErrMissingEndpoint = pkgerrors.Sentinel(pkgerrors.ErrorTypeValidation, "MISSING_ENDPOINT", "edge endpoint does not exist")
	ErrEdgeNotAllowed  = pkgerrors.Sentinel(pkgerrors.ErrorTypeValidation, "EDGE_NOT_ALLOWED", "edge violates graph options")
)

// GraphType constrains edge directedness
type GraphType string

const (
	GraphDirected   GraphType = "directed"
	GraphUndirected GraphType = "undirected"
	GraphMixed      GraphType = "mixed"
)

// Options are the structural options of a document
type Options struct {
	Type           GraphType `json:"type"`
	Multi          bool      `json:"multi"`
	AllowSelfLoops bool      `json:"allowSelfLoops"`
}

// DefaultOptions returns mixed, multi, self-loops allowed
func DefaultOptions() Options {
	return Options{Type: GraphMixed, Multi: true, AllowSelfLoops: true}
}

// Document is the in-memory multigraph of nodes and edges.
// It is not safe for concurrent use; the store serializes access.
type Document struct {
	id         string
	options    Options
	attributes valueobjects.Attributes
	nodes      *orderedSet[*entities.Node]
	edges      *orderedSet[*entities.Edge]
	incidence  map[string]map[string]struct{}
	cfg        *config.DomainConfig
	version    int

	// Domain events raised since the last drain
	events []events.DomainEvent
}

// NewDocument creates an empty document with default attributes
func NewDocument(options Options, cfg *config.DomainConfig) *Document {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if options.Type == "" {
		options.Type = GraphMixed
	}
	return &Document{
		id:      uuid.NewString(),
		options: options,
		attributes: valueobjects.Attributes{
			"name": valueobjects.StringValue(cfg.DefaultGraphName),
		},
		nodes:     newOrderedSet[*entities.Node](),
		edges:     newOrderedSet[*entities.Edge](),
		incidence: make(map[string]map[string]struct{}),
		cfg:       cfg,
	}
}

// ID returns the document's identity used as the event aggregate ID
func (d *Document) ID() string { return d.id }

// Version counts committed mutations
func (d *Document) Version() int { return d.version }

// Options returns the structural options
func (d *Document) Options() Options { return d.options }

// Attributes returns a copy of the document-level attributes
func (d *Document) Attributes() valueobjects.Attributes { return d.attributes.Clone() }

// SetAttribute sets a document-level attribute; null removes it
func (d *Document) SetAttribute(name string, value valueobjects.Value) {
	if value.IsNull() {
		delete(d.attributes, name)
		return
	}
	d.attributes[name] = value
}

// Order returns the number of nodes
func (d *Document) Order() int { return d.nodes.len() }

// Size returns the number of edges
func (d *Document) Size() int { return d.edges.len() }

// HasNode reports whether key names a node
func (d *Document) HasNode(key string) bool { return d.nodes.has(key) }

// HasEdge reports whether key names an edge
func (d *Document) HasEdge(key string) bool { return d.edges.has(key) }

// AddNode inserts a node. Duplicate keys fail with ErrDuplicateKey.
func (d *Document) AddNode(key string, attrs entities.NodeAttributes) error {
	if d.nodes.has(key) {
		return pkgerrors.Derive(ErrDuplicateKey, "node %q already exists", key)
	}
	node, err := entities.NewNode(key, attrs)
	if err != nil {
		return err
	}
	d.nodes.put(key, node)
	d.incidence[key] = make(map[string]struct{})
	d.commit(func(v int) events.DomainEvent { return events.NewNodeAdded(d.id, v, key) })
	return nil
}

// AddEdge inserts an edge between existing nodes and returns its key.
// An empty key is generated. Undirected is ignored for undirected graphs.
func (d *Document) AddEdge(key, source, target string, attrs valueobjects.Attributes, undirected bool) (string, error) {
	if key == "" {
		key = d.GenerateKey(d.cfg.EdgeKeyPrefix, d.edges.has)
	} else if d.edges.has(key) {
		return "", pkgerrors.Derive(ErrDuplicateKey, "edge %q already exists", key)
	}
	for _, endpoint := range []string{source, target} {
		if !d.nodes.has(endpoint) {
			return "", pkgerrors.Derive(ErrMissingEndpoint, "edge %q references missing node %q", key, endpoint)
		}
	}

	switch d.options.Type {
	case GraphUndirected:
		undirected = true
	case GraphDirected:
		if undirected {
			return "", pkgerrors.Derive(ErrEdgeNotAllowed, "directed graph cannot hold undirected edge %q", key)
		}
	}
	if !d.options.AllowSelfLoops && source == target {
		return "", pkgerrors.Derive(ErrEdgeNotAllowed, "self loop on %q is not allowed", source)
	}
	if !d.options.Multi && d.hasParallel(source, target, undirected) {
		return "", pkgerrors.Derive(ErrEdgeNotAllowed, "parallel edge between %q and %q is not allowed", source, target)
	}

	edge, err := entities.NewEdge(key, source, target, undirected, attrs)
	if err != nil {
		return "", err
	}
	d.edges.put(key, edge)
	d.incidence[source][key] = struct{}{}
	d.incidence[target][key] = struct{}{}
	d.commit(func(v int) events.DomainEvent {
		return events.NewEdgeAdded(d.id, v, key, source, target, undirected)
	})
	return key, nil
}

func (d *Document) hasParallel(source, target string, undirected bool) bool {
	for edgeKey := range d.incidence[source] {
		e, _ := d.edges.get(edgeKey)
		if e.IsUndirected() != undirected {
			continue
		}
		if e.Connects(source, target) {
			return true
		}
	}
	return false
}

// DropNode removes a node together with every incident edge
func (d *Document) DropNode(key string) error {
	if !d.nodes.has(key) {
		return pkgerrors.Derive(ErrNodeNotFound, "node %q not found", key)
	}
	for _, edgeKey := range d.incidentEdges(key) {
		d.dropEdge(edgeKey)
	}
	d.nodes.remove(key)
	delete(d.incidence, key)
	d.commit(func(v int) events.DomainEvent { return events.NewNodeDropped(d.id, v, key) })
	return nil
}

// DropEdge removes an edge
func (d *Document) DropEdge(key string) error {
	if !d.edges.has(key) {
		return pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	d.dropEdge(key)
	return nil
}

func (d *Document) dropEdge(key string) {
	e, _ := d.edges.get(key)
	d.edges.remove(key)
	delete(d.incidence[e.Source()], key)
	delete(d.incidence[e.Target()], key)
	d.commit(func(v int) events.DomainEvent { return events.NewEdgeDropped(d.id, v, key) })
}

// incidentEdges lists incident edge keys in document order
func (d *Document) incidentEdges(key string) []string {
	inc := d.incidence[key]
	out := make([]string, 0, len(inc))
	if len(inc) == 0 {
		return out
	}
	d.edges.each(func(edgeKey string, _ *entities.Edge) bool {
		if _, ok := inc[edgeKey]; ok {
			out = append(out, edgeKey)
		}
		return len(out) < len(inc)
	})
	return out
}

// Node returns a copy of the node
func (d *Document) Node(key string) (*entities.Node, error) {
	n, ok := d.nodes.get(key)
	if !ok {
		return nil, pkgerrors.Derive(ErrNodeNotFound, "node %q not found", key)
	}
	return n.Clone(), nil
}

// NodeAttributes returns a copy of the node's attributes
func (d *Document) NodeAttributes(key string) (entities.NodeAttributes, error) {
	n, ok := d.nodes.get(key)
	if !ok {
		return entities.NodeAttributes{}, pkgerrors.Derive(ErrNodeNotFound, "node %q not found", key)
	}
	return n.Attributes(), nil
}

// ReplaceNodeAttributes swaps a node's attributes wholesale
func (d *Document) ReplaceNodeAttributes(key string, attrs entities.NodeAttributes) error {
	n, ok := d.nodes.get(key)
	if !ok {
		return pkgerrors.Derive(ErrNodeNotFound, "node %q not found", key)
	}
	n.Replace(attrs)
	d.commit(func(v int) events.DomainEvent { return events.NewNodeAttributesUpdated(d.id, v, key) })
	return nil
}

// Edge returns a copy of the edge
func (d *Document) Edge(key string) (*entities.Edge, error) {
	e, ok := d.edges.get(key)
	if !ok {
		return nil, pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	return e.Clone(), nil
}

// EdgeAttributes returns a copy of the edge's attribute bag
func (d *Document) EdgeAttributes(key string) (valueobjects.Attributes, error) {
	e, ok := d.edges.get(key)
	if !ok {
		return nil, pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	return e.Attributes(), nil
}

// ReplaceEdgeAttributes swaps an edge's attribute bag wholesale
func (d *Document) ReplaceEdgeAttributes(key string, attrs valueobjects.Attributes) error {
	e, ok := d.edges.get(key)
	if !ok {
		return pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	e.Replace(attrs)
	d.commit(func(v int) events.DomainEvent { return events.NewEdgeAttributesUpdated(d.id, v, key) })
	return nil
}

// Source returns an edge's source node key
func (d *Document) Source(key string) (string, error) {
	e, ok := d.edges.get(key)
	if !ok {
		return "", pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	return e.Source(), nil
}

// Target returns an edge's target node key
func (d *Document) Target(key string) (string, error) {
	e, ok := d.edges.get(key)
	if !ok {
		return "", pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	return e.Target(), nil
}

// IsUndirected reports an edge's directedness
func (d *Document) IsUndirected(key string) (bool, error) {
	e, ok := d.edges.get(key)
	if !ok {
		return false, pkgerrors.Derive(ErrEdgeNotFound, "edge %q not found", key)
	}
	return e.IsUndirected(), nil
}

// Degree counts edges incident to a node; a self loop counts twice
func (d *Document) Degree(key string) (int, error) {
	inc, ok := d.incidence[key]
	if !ok {
		return 0, pkgerrors.Derive(ErrNodeNotFound, "node %q not found", key)
	}
	degree := 0
	for edgeKey := range inc {
		degree++
		if e, _ := d.edges.get(edgeKey); e.IsSelfLoop() {
			degree++
		}
	}
	return degree, nil
}

// ForEachNode visits nodes in insertion order. The node must not be
// retained or modified by fn.
func (d *Document) ForEachNode(fn func(node *entities.Node)) {
	d.nodes.each(func(_ string, n *entities.Node) bool {
		fn(n)
		return true
	})
}

// ForEachEdge visits edges in insertion order. The edge must not be
// retained or modified by fn.
func (d *Document) ForEachEdge(fn func(edge *entities.Edge)) {
	d.edges.each(func(_ string, e *entities.Edge) bool {
		fn(e)
		return true
	})
}

// Nodes returns node keys in insertion order
func (d *Document) Nodes() []string { return d.nodes.keys() }

// Edges returns edge keys in insertion order
func (d *Document) Edges() []string { return d.edges.keys() }

// AssignPositions moves existing nodes in one batch and raises a single
// positions event. Unknown keys are ignored. Returns the number moved.
func (d *Document) AssignPositions(positions map[string]valueobjects.Position) int {
	moved := 0
	for key, pos := range positions {
		if n, ok := d.nodes.get(key); ok {
			n.MoveTo(pos)
			moved++
		}
	}
	if moved > 0 {
		d.commit(func(v int) events.DomainEvent { return events.NewPositionsUpdated(d.id, v, moved) })
	}
	return moved
}

// GenerateKey returns prefix plus a short random suffix not rejected by taken
func (d *Document) GenerateKey(prefix string, taken func(string) bool) string {
	for {
		key := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if !taken(key) {
			return key
		}
	}
}

// GenerateNodeKey returns an unused node key
func (d *Document) GenerateNodeKey() string {
	return d.GenerateKey(d.cfg.NodeKeyPrefix, d.nodes.has)
}

// GetUncommittedEvents returns events raised since the last drain
func (d *Document) GetUncommittedEvents() []events.DomainEvent {
	return d.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (d *Document) MarkEventsAsCommitted() {
	d.events = nil
}

// DrainEvents returns and clears the uncommitted events
func (d *Document) DrainEvents() []events.DomainEvent {
	out := d.GetUncommittedEvents()
	d.MarkEventsAsCommitted()
	return out
}

func (d *Document) commit(build func(version int) events.DomainEvent) {
	d.version++
	d.events = append(d.events, build(d.version))
}
