package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names
const (
	TypeNodeAdded             = "node.added"
	TypeNodeDropped           = "node.dropped"
	TypeNodeAttributesUpdated = "node.attributes_updated"
	TypeEdgeAdded             = "edge.added"
	TypeEdgeDropped           = "edge.dropped"
	TypeEdgeAttributesUpdated = "edge.attributes_updated"
	TypePositionsUpdated      = "graph.positions_updated"
	TypeGraphReplaced         = "graph.replaced"
	TypeSelectionChanged      = "selection.changed"
	TypeLayoutChanged         = "layout.changed"
	TypeHistoryChanged        = "history.changed"
)

func newBase(aggregateID, eventType string, version int) BaseEvent {
	return BaseEvent{
		EventID:     uuid.NewString(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
		Version:     version,
	}
}

// IsStructural reports whether the event changes nodes, edges or their
// attributes. Position-only updates from layouts are not structural.
func IsStructural(event DomainEvent) bool {
	switch event.GetEventType() {
	case TypeNodeAdded, TypeNodeDropped, TypeNodeAttributesUpdated,
		TypeEdgeAdded, TypeEdgeDropped, TypeEdgeAttributesUpdated,
		TypeGraphReplaced:
		return true
	default:
		return false
	}
}

// Document events

// NodeAdded is raised when a node joins the document
type NodeAdded struct {
	BaseEvent
	NodeKey string `json:"node_key"`
}

func NewNodeAdded(documentID string, version int, key string) NodeAdded {
	return NodeAdded{BaseEvent: newBase(documentID, TypeNodeAdded, version), NodeKey: key}
}

// NodeDropped is raised when a node leaves the document
type NodeDropped struct {
	BaseEvent
	NodeKey string `json:"node_key"`
}

func NewNodeDropped(documentID string, version int, key string) NodeDropped {
	return NodeDropped{BaseEvent: newBase(documentID, TypeNodeDropped, version), NodeKey: key}
}

// NodeAttributesUpdated is raised when a node's attributes are replaced
type NodeAttributesUpdated struct {
	BaseEvent
	NodeKey string `json:"node_key"`
}

func NewNodeAttributesUpdated(documentID string, version int, key string) NodeAttributesUpdated {
	return NodeAttributesUpdated{BaseEvent: newBase(documentID, TypeNodeAttributesUpdated, version), NodeKey: key}
}

// EdgeAdded is raised when an edge joins the document
type EdgeAdded struct {
	BaseEvent
	EdgeKey    string `json:"edge_key"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Undirected bool   `json:"undirected"`
}

func NewEdgeAdded(documentID string, version int, key, source, target string, undirected bool) EdgeAdded {
	return EdgeAdded{
		BaseEvent:  newBase(documentID, TypeEdgeAdded, version),
		EdgeKey:    key,
		Source:     source,
		Target:     target,
		Undirected: undirected,
	}
}

// EdgeDropped is raised when an edge leaves the document
type EdgeDropped struct {
	BaseEvent
	EdgeKey string `json:"edge_key"`
}

func NewEdgeDropped(documentID string, version int, key string) EdgeDropped {
	return EdgeDropped{BaseEvent: newBase(documentID, TypeEdgeDropped, version), EdgeKey: key}
}

// EdgeAttributesUpdated is raised when an edge's attributes are replaced
type EdgeAttributesUpdated struct {
	BaseEvent
	EdgeKey string `json:"edge_key"`
}

func NewEdgeAttributesUpdated(documentID string, version int, key string) EdgeAttributesUpdated {
	return EdgeAttributesUpdated{BaseEvent: newBase(documentID, TypeEdgeAttributesUpdated, version), EdgeKey: key}
}

// PositionsUpdated is raised once per batch of coordinate changes
type PositionsUpdated struct {
	BaseEvent
	Count int `json:"count"`
}

func NewPositionsUpdated(documentID string, version int, count int) PositionsUpdated {
	return PositionsUpdated{BaseEvent: newBase(documentID, TypePositionsUpdated, version), Count: count}
}

// Store events

// GraphReplaced is raised when the whole document is swapped by a load,
// undo or redo
type GraphReplaced struct {
	BaseEvent
	Reason string `json:"reason"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

func NewGraphReplaced(documentID string, version int, reason string, nodes, edges int) GraphReplaced {
	return GraphReplaced{
		BaseEvent: newBase(documentID, TypeGraphReplaced, version),
		Reason:    reason,
		Nodes:     nodes,
		Edges:     edges,
	}
}

// SelectionChanged carries the new selection
type SelectionChanged struct {
	BaseEvent
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

func NewSelectionChanged(documentID string, version int, nodes, edges []string) SelectionChanged {
	return SelectionChanged{
		BaseEvent: newBase(documentID, TypeSelectionChanged, version),
		Nodes:     nodes,
		Edges:     edges,
	}
}

// LayoutChanged carries the layout state after a run or stop
type LayoutChanged struct {
	BaseEvent
	Layout  string `json:"layout"`
	Running bool   `json:"running"`
}

func NewLayoutChanged(documentID string, version int, layout string, running bool) LayoutChanged {
	return LayoutChanged{
		BaseEvent: newBase(documentID, TypeLayoutChanged, version),
		Layout:    layout,
		Running:   running,
	}
}

// HistoryChanged carries the undo/redo stack depths
type HistoryChanged struct {
	BaseEvent
	UndoDepth int  `json:"undo_depth"`
	RedoDepth int  `json:"redo_depth"`
	CanUndo   bool `json:"can_undo"`
	CanRedo   bool `json:"can_redo"`
}

func NewHistoryChanged(documentID string, version int, undoDepth, redoDepth int) HistoryChanged {
	return HistoryChanged{
		BaseEvent: newBase(documentID, TypeHistoryChanged, version),
		UndoDepth: undoDepth,
		RedoDepth: redoDepth,
		CanUndo:   undoDepth > 0,
		CanRedo:   redoDepth > 0,
	}
}
