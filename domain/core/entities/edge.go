package entities

import (
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Edge attribute names
const (
	AttrType             = "type"
	AttrRelationshipType = "relationship_type"
	AttrWeight           = "weight"
)

// Edge connects two nodes of the graph document
type Edge struct {
	key        string
	source     string
	target     string
	undirected bool
	attrs      valueobjects.Attributes
}

// NewEdge creates an edge between two node keys
func NewEdge(key, source, target string, undirected bool, attrs valueobjects.Attributes) (*Edge, error) {
	if key == "" {
		return nil, pkgerrors.NewValidationError("edge key cannot be empty")
	}
	if source == "" || target == "" {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	return &Edge{
		key:        key,
		source:     source,
		target:     target,
		undirected: undirected,
		attrs:      attrs.Clone(),
	}, nil
}

// Key returns the edge's identity
func (e *Edge) Key() string { return e.key }

// Source returns the source node key
func (e *Edge) Source() string { return e.source }

// Target returns the target node key
func (e *Edge) Target() string { return e.target }

// IsUndirected reports the edge's directedness
func (e *Edge) IsUndirected() bool { return e.undirected }

// IsSelfLoop reports whether both endpoints are the same node
func (e *Edge) IsSelfLoop() bool { return e.source == e.target }

// Attributes returns a copy of the attribute bag
func (e *Edge) Attributes() valueobjects.Attributes { return e.attrs.Clone() }

// Lookup returns a single attribute without copying the bag
func (e *Edge) Lookup(name string) (valueobjects.Value, bool) {
	v, ok := e.attrs[name]
	if !ok || v.IsNull() {
		return valueobjects.Value{}, false
	}
	return v, true
}

// Type returns the relationship type, read from type then relationship_type
func (e *Edge) Type() string {
	for _, name := range []string{AttrType, AttrRelationshipType} {
		if v, ok := e.Lookup(name); ok {
			return v.String()
		}
	}
	return ""
}

// Weight returns the numeric weight when present
func (e *Edge) Weight() (float64, bool) {
	v, ok := e.Lookup(AttrWeight)
	if !ok {
		return 0, false
	}
	return v.Numeric()
}

// Connects reports whether the edge joins a and b, honouring direction
func (e *Edge) Connects(a, b string) bool {
	if e.source == a && e.target == b {
		return true
	}
	return e.undirected && e.source == b && e.target == a
}

// Replace swaps the attribute bag
func (e *Edge) Replace(attrs valueobjects.Attributes) {
	e.attrs = attrs.Clone()
}

// Clone returns a deep copy
func (e *Edge) Clone() *Edge {
	out := *e
	out.attrs = e.attrs.Clone()
	return &out
}
