package render

import (
	"math"
	"strings"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
)

const (
	fallbackNodeColor = "#6B7280"
	fallbackEdgeColor = "#999"

	minDisplaySize = 4
	maxDisplaySize = 10
)

// kindColors is the palette keyed by lowercased kind
var kindColors = map[string]string{
	"person":  "#4F46E5",
	"project": "#059669",
	"team":    "#2563EB",
	"domain":  "#EA580C",
	"skill":   "#9333EA",
}

// NodeColor returns the explicit colour, then the kind palette, then grey
func NodeColor(node *entities.Node) string {
	if v, ok := node.Lookup(entities.AttrColor); ok {
		if s, isStr := v.AsString(); isStr && s != "" {
			return s
		}
	}
	if c, ok := kindColors[strings.ToLower(node.Kind())]; ok {
		return c
	}
	return fallbackNodeColor
}

// NodeDisplaySize returns the node's size when set, otherwise the degree
// clamped to [4, 10]
func NodeDisplaySize(size float64, degree int) float64 {
	if size > 0 {
		return size
	}
	return math.Max(minDisplaySize, math.Min(maxDisplaySize, float64(degree)))
}

// EdgeColor returns the explicit colour or the default edge grey
func EdgeColor(edge *entities.Edge) string {
	if v, ok := edge.Lookup(entities.AttrColor); ok {
		if s, isStr := v.AsString(); isStr && s != "" {
			return s
		}
	}
	return fallbackEdgeColor
}

// EdgeSize returns the edge weight, or 1 when the weight is missing or zero
func EdgeSize(edge *entities.Edge) float64 {
	if w, ok := edge.Weight(); ok && w != 0 {
		return w
	}
	return 1
}
