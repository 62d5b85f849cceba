package layout

import (
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
)

type link struct {
	source, target int
	weight         float64
}

// Graph is a compact copy of a document's topology and coordinates that
// layout algorithms work on
type Graph struct {
	keys  []string
	index map[string]int
	x, y  []float64
	mass  []float64
	links []link
}

// Snapshot copies the document's nodes, edges and positions
func Snapshot(doc *aggregates.Document) *Graph {
	n := doc.Order()
	g := &Graph{
		keys:  make([]string, 0, n),
		index: make(map[string]int, n),
		x:     make([]float64, 0, n),
		y:     make([]float64, 0, n),
		mass:  make([]float64, 0, n),
		links: make([]link, 0, doc.Size()),
	}
	doc.ForEachNode(func(node *entities.Node) {
		g.index[node.Key()] = len(g.keys)
		g.keys = append(g.keys, node.Key())
		pos := node.Position()
		g.x = append(g.x, pos.X())
		g.y = append(g.y, pos.Y())
		g.mass = append(g.mass, 1)
	})
	doc.ForEachEdge(func(edge *entities.Edge) {
		s, t := g.index[edge.Source()], g.index[edge.Target()]
		w, ok := edge.Weight()
		if !ok {
			w = 1
		}
		g.links = append(g.links, link{source: s, target: t, weight: w})
		g.mass[s]++
		g.mass[t]++
	})
	return g
}

// Len returns the number of nodes
func (g *Graph) Len() int { return len(g.keys) }

// Position returns a node's current coordinates
func (g *Graph) Position(key string) (valueobjects.Position, bool) {
	i, ok := g.index[key]
	if !ok {
		return valueobjects.Position{}, false
	}
	pos, err := valueobjects.NewPosition(g.x[i], g.y[i])
	return pos, err == nil
}

// Positions returns every finite coordinate pair keyed by node
func (g *Graph) Positions() map[string]valueobjects.Position {
	out := make(map[string]valueobjects.Position, len(g.keys))
	for i, key := range g.keys {
		if pos, err := valueobjects.NewPosition(g.x[i], g.y[i]); err == nil {
			out[key] = pos
		}
	}
	return out
}
