package render

import (
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
)

// NodeView is what a canvas needs to draw a node
type NodeView struct {
	Key        string     `json:"key"`
	Label      string     `json:"label,omitempty"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Size       float64    `json:"size"`
	Color      string     `json:"color"`
	Shape      string     `json:"shape"`
	Hidden     bool       `json:"hidden"`
	Selected   bool       `json:"selected,omitempty"`
	Decoration Decoration `json:"decoration"`
}

// EdgeView is what a canvas needs to draw an edge
type EdgeView struct {
	Key    string  `json:"key"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Color  string  `json:"color"`
	Size   float64 `json:"size"`
	Hidden bool    `json:"hidden"`
}

// View is the full render model of a document
type View struct {
	Nodes   []NodeView `json:"nodes"`
	Edges   []EdgeView `json:"edges"`
	Visible int        `json:"visible"`
}

// BuildView resolves colours, sizes and decorations for every node and edge.
// Nodes rejected by pred are hidden, as are edges touching a hidden node.
// A nil pred shows everything.
func BuildView(doc *aggregates.Document, reg *Registry, pred filters.Predicate, selected map[string]bool) View {
	view := View{
		Nodes: make([]NodeView, 0, doc.Order()),
		Edges: make([]EdgeView, 0, doc.Size()),
	}
	hidden := make(map[string]bool)

	doc.ForEachNode(func(n *entities.Node) {
		degree, _ := doc.Degree(n.Key())
		pos := n.Position()
		nv := NodeView{
			Key:        n.Key(),
			Label:      n.Label(),
			X:          pos.X(),
			Y:          pos.Y(),
			Size:       NodeDisplaySize(n.Size(), degree),
			Color:      NodeColor(n),
			Shape:      string(n.Shape()),
			Selected:   selected[n.Key()],
			Decoration: reg.Decorate(n),
		}
		if pred != nil && !pred(n) {
			nv.Hidden = true
			hidden[n.Key()] = true
		} else {
			view.Visible++
		}
		view.Nodes = append(view.Nodes, nv)
	})

	doc.ForEachEdge(func(e *entities.Edge) {
		view.Edges = append(view.Edges, EdgeView{
			Key:    e.Key(),
			Source: e.Source(),
			Target: e.Target(),
			Color:  EdgeColor(e),
			Size:   EdgeSize(e),
			Hidden: hidden[e.Source()] || hidden[e.Target()],
		})
	})
	return view
}
