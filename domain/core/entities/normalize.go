package entities

import (
	"math"
	"math/rand"
	"strings"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
)

var shapeByKind = map[string]Shape{
	"person":  ShapeCircle,
	"team":    ShapeCircle,
	"project": ShapeSquare,
	"ticket":  ShapeCircle,
	"server":  ShapeSquare,
	"process": ShapeCircle,
}

var variantByKind = map[string]string{
	"person":  "circle.person",
	"team":    "circle.kpiSegments",
	"project": "square.header",
	"ticket":  "circle.statusRing",
	"server":  "square.accentProgress",
	"process": "circle.statusRing",
}

// structural legacy type values name a shape rather than a kind
var structuralTypes = map[string]Shape{
	"circle": ShapeCircle,
	"square": ShapeSquare,
	"image":  ShapeCircle,
}

const attrBase = "base"

// Normalizer fills the display attributes of raw node records.
// It never fails: missing or malformed fields get defaults.
type Normalizer struct {
	sizeFloor   float64
	defaultSize float64
	rnd         func() float64
}

// NewNormalizer creates a normalizer. A nil rnd uses math/rand.
func NewNormalizer(cfg *config.DomainConfig, rnd func() float64) *Normalizer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Normalizer{
		sizeFloor:   cfg.SizeFloor,
		defaultSize: cfg.DefaultSize,
		rnd:         rnd,
	}
}

// Normalize resolves kind, shape, variant, size and coordinates.
// Missing coordinates are drawn uniformly from [0,1).
func (n *Normalizer) Normalize(raw valueobjects.Attributes) NodeAttributes {
	return n.normalize(raw, nil)
}

// NormalizeWithFallback is Normalize, except that non-numeric coordinates
// fall back to the given position instead of random placement.
func (n *Normalizer) NormalizeWithFallback(raw valueobjects.Attributes, fallback valueobjects.Position) NodeAttributes {
	return n.normalize(raw, &fallback)
}

func (n *Normalizer) normalize(raw valueobjects.Attributes, fallback *valueobjects.Position) NodeAttributes {
	kind := stringAttr(raw, AttrKind)
	legacy := stringAttr(raw, AttrType)
	_, legacyIsShape := structuralTypes[strings.ToLower(legacy)]
	if kind == "" && legacy != "" && !legacyIsShape {
		kind = strings.ToLower(legacy)
	}
	lookup := strings.ToLower(kind)

	attrs := NodeAttributes{
		Kind:    kind,
		Shape:   resolveShape(raw, legacy, lookup),
		Variant: stringAttr(raw, AttrVariant),
		Size:    n.resolveSize(raw),
	}
	if attrs.Variant == "" {
		attrs.Variant = VariantPlain
		if v, ok := variantByKind[lookup]; ok {
			attrs.Variant = v
		}
	}

	x, xok := coordinate(raw, AttrX)
	y, yok := coordinate(raw, AttrY)
	if !xok {
		if fallback != nil {
			x = fallback.X()
		} else {
			x = n.rnd()
		}
	}
	if !yok {
		if fallback != nil {
			y = fallback.Y()
		} else {
			y = n.rnd()
		}
	}
	pos, err := valueobjects.NewPosition(x, y)
	if err != nil {
		pos = valueobjects.RandomPosition(n.rnd)
	}
	attrs.Position = pos

	// the legacy type field is consumed into kind or shape
	attrs.Extra = raw.Without(AttrKind, AttrShape, AttrVariant, AttrSize, AttrX, AttrY, AttrType)
	return attrs
}

// resolveShape prefers an explicit shape. Unrecognised explicit values are
// kept as given so they survive export.
func resolveShape(raw valueobjects.Attributes, legacy, kind string) Shape {
	if explicit := stringAttr(raw, AttrShape); explicit != "" {
		if s, ok := structuralTypes[strings.ToLower(explicit)]; ok {
			return s
		}
		return Shape(explicit)
	}
	if s, ok := structuralTypes[strings.ToLower(stringAttr(raw, attrBase))]; ok {
		return s
	}
	if s, ok := structuralTypes[strings.ToLower(legacy)]; ok {
		return s
	}
	if s, ok := shapeByKind[kind]; ok {
		return s
	}
	return ShapeCircle
}

func (n *Normalizer) resolveSize(raw valueobjects.Attributes) float64 {
	size := n.defaultSize
	if v, ok := raw[AttrSize]; ok {
		if f, ok := v.Numeric(); ok {
			size = f
		}
	}
	return math.Max(n.sizeFloor, size)
}

func coordinate(raw valueobjects.Attributes, name string) (float64, bool) {
	v, ok := raw[name]
	if !ok {
		return 0, false
	}
	f, ok := v.AsNumber()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringAttr(raw valueobjects.Attributes, name string) string {
	v, ok := raw[name]
	if !ok {
		return ""
	}
	s, ok := v.AsString()
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
