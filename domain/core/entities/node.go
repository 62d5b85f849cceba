package entities

import (
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Shape is the rendering primitive of a node. Circle and square are the
// primitives the renderer draws; other explicit values are carried through.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
)

// VariantPlain is the undecorated presentation style
const VariantPlain = "plain"

// Well-known attribute names modeled as explicit fields
const (
	AttrKind    = "kind"
	AttrShape   = "shape"
	AttrVariant = "variant"
	AttrSize    = "size"
	AttrX       = "x"
	AttrY       = "y"
	AttrLabel   = "label"
	AttrColor   = "color"
)

// IsWellKnown reports whether name is held in an explicit NodeAttributes field
func IsWellKnown(name string) bool {
	switch name {
	case AttrKind, AttrShape, AttrVariant, AttrSize, AttrX, AttrY:
		return true
	}
	return false
}

// NodeAttributes is the normalized attribute set of a node.
// Position is a value type, so a node can never lack coordinates.
type NodeAttributes struct {
	Kind     string
	Shape    Shape
	Variant  string
	Size     float64
	Position valueobjects.Position
	Extra    valueobjects.Attributes
}

// Clone returns a deep copy
func (a NodeAttributes) Clone() NodeAttributes {
	out := a
	out.Extra = a.Extra.Clone()
	return out
}

// Lookup returns the attribute under its wire name
func (a NodeAttributes) Lookup(name string) (valueobjects.Value, bool) {
	switch name {
	case AttrKind:
		if a.Kind == "" {
			return valueobjects.Value{}, false
		}
		return valueobjects.StringValue(a.Kind), true
	case AttrShape:
		return valueobjects.StringValue(string(a.Shape)), true
	case AttrVariant:
		return valueobjects.StringValue(a.Variant), true
	case AttrSize:
		return valueobjects.NumberValue(a.Size), true
	case AttrX:
		return valueobjects.NumberValue(a.Position.X()), true
	case AttrY:
		return valueobjects.NumberValue(a.Position.Y()), true
	}
	v, ok := a.Extra[name]
	if !ok || v.IsNull() {
		return valueobjects.Value{}, false
	}
	return v, true
}

// Flatten produces the wire attribute map
func (a NodeAttributes) Flatten() valueobjects.Attributes {
	out := a.Extra.Clone()
	if a.Kind != "" {
		out[AttrKind] = valueobjects.StringValue(a.Kind)
	}
	out[AttrShape] = valueobjects.StringValue(string(a.Shape))
	out[AttrVariant] = valueobjects.StringValue(a.Variant)
	out[AttrSize] = valueobjects.NumberValue(a.Size)
	out[AttrX] = valueobjects.NumberValue(a.Position.X())
	out[AttrY] = valueobjects.NumberValue(a.Position.Y())
	return out
}

// Equal compares two attribute sets field by field
func (a NodeAttributes) Equal(other NodeAttributes) bool {
	return a.Kind == other.Kind &&
		a.Shape == other.Shape &&
		a.Variant == other.Variant &&
		a.Size == other.Size &&
		a.Position.Equals(other.Position) &&
		a.Extra.Equal(other.Extra)
}

// Node is a vertex of the graph document
type Node struct {
	key   string
	attrs NodeAttributes
}

// NewNode creates a node with a non-empty key
func NewNode(key string, attrs NodeAttributes) (*Node, error) {
	if key == "" {
		return nil, pkgerrors.NewValidationError("node key cannot be empty")
	}
	if attrs.Extra == nil {
		attrs.Extra = valueobjects.Attributes{}
	}
	return &Node{key: key, attrs: attrs.Clone()}, nil
}

// Key returns the node's identity
func (n *Node) Key() string { return n.key }

// Attributes returns a copy of the node's attributes
func (n *Node) Attributes() NodeAttributes { return n.attrs.Clone() }

// Lookup returns a single attribute by wire name without copying the bag
func (n *Node) Lookup(name string) (valueobjects.Value, bool) {
	return n.attrs.Lookup(name)
}

// Flatten returns the wire attribute map
func (n *Node) Flatten() valueobjects.Attributes { return n.attrs.Flatten() }

// Kind returns the semantic category
func (n *Node) Kind() string { return n.attrs.Kind }

// Shape returns the rendering primitive
func (n *Node) Shape() Shape { return n.attrs.Shape }

// Variant returns the decoration style
func (n *Node) Variant() string { return n.attrs.Variant }

// Size returns the normalized size
func (n *Node) Size() float64 { return n.attrs.Size }

// Position returns the current coordinates
func (n *Node) Position() valueobjects.Position { return n.attrs.Position }

// Label returns the display label, or "" when absent
func (n *Node) Label() string {
	v, ok := n.attrs.Extra[AttrLabel]
	if !ok || v.IsNull() {
		return ""
	}
	return v.String()
}

// Replace swaps the node's attributes
func (n *Node) Replace(attrs NodeAttributes) {
	if attrs.Extra == nil {
		attrs.Extra = valueobjects.Attributes{}
	}
	n.attrs = attrs.Clone()
}

// MoveTo updates only the coordinates
func (n *Node) MoveTo(pos valueobjects.Position) {
	n.attrs.Position = pos
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	return &Node{key: n.key, attrs: n.attrs.Clone()}
}
