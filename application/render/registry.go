// Package render resolves node presentation: the variant registry with its
// decorations, and the colour and size helpers used by the render view.
package render

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// Builtin variant names
const (
	VariantPlain          = entities.VariantPlain
	VariantStatusRing     = "circle.statusRing"
	VariantKpiSegments    = "circle.kpiSegments"
	VariantPerson         = "circle.person"
	VariantHeader         = "square.header"
	VariantAccentProgress = "square.accentProgress"
	VariantCornerTag      = "square.cornerTag"
)

// Variant is a named decoration style layered on a base shape
type Variant interface {
	Name() string
	BaseShape() entities.Shape
	Decorate(node *entities.Node) Decoration
	Defaults() valueobjects.Attributes
}

type definition struct {
	name          string
	base          entities.Shape
	decoratorName string
	decorate      Decorator
	defaults      valueobjects.Attributes
	uiSchema      json.RawMessage
	overridden    bool
}

func (d *definition) Name() string                      { return d.name }
func (d *definition) BaseShape() entities.Shape         { return d.base }
func (d *definition) Defaults() valueobjects.Attributes { return d.defaults.Clone() }

func (d *definition) Decorate(node *entities.Node) Decoration {
	out := Decoration{Variant: d.name, Base: string(d.base)}
	d.decorate(node, &out)
	return out
}

var decorators = map[string]Decorator{
	VariantPlain:          decorateNone,
	VariantStatusRing:     decorateStatusRing,
	VariantKpiSegments:    decorateKpiSegments,
	VariantPerson:         decoratePerson,
	VariantHeader:         decorateHeader,
	VariantAccentProgress: decorateAccentProgress,
	VariantCornerTag:      decorateCornerTag,
}

func builtins() map[string]*definition {
	def := func(name string, base entities.Shape, defaults valueobjects.Attributes) *definition {
		if defaults == nil {
			defaults = valueobjects.Attributes{}
		}
		return &definition{name: name, base: base, decoratorName: name, decorate: decorators[name], defaults: defaults}
	}
	return map[string]*definition{
		VariantPlain:          def(VariantPlain, entities.ShapeCircle, nil),
		VariantStatusRing:     def(VariantStatusRing, entities.ShapeCircle, nil),
		VariantKpiSegments:    def(VariantKpiSegments, entities.ShapeCircle, nil),
		VariantPerson:         def(VariantPerson, entities.ShapeCircle, valueobjects.Attributes{entities.AttrSize: valueobjects.NumberValue(16)}),
		VariantHeader:         def(VariantHeader, entities.ShapeSquare, nil),
		VariantAccentProgress: def(VariantAccentProgress, entities.ShapeSquare, nil),
		VariantCornerTag:      def(VariantCornerTag, entities.ShapeSquare, nil),
	}
}

// Override is one entry of the node-types document. Every field is optional;
// decorator names one of the builtin decorations.
type Override struct {
	Base      string                  `json:"base,omitempty"`
	Decorator string                  `json:"decorator,omitempty"`
	Defaults  valueobjects.Attributes `json:"defaults,omitempty"`
	UISchema  json.RawMessage         `json:"uiSchema,omitempty"`
}

// ParseOverrides decodes a node-types document keyed by variant name
func ParseOverrides(data []byte) (map[string]Override, error) {
	var out map[string]Override
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, pkgerrors.NewValidationError("invalid node types document").WithCause(err)
	}
	return out, nil
}

// VariantInfo describes a resolved variant for listing
type VariantInfo struct {
	Name       string                  `json:"name"`
	Base       string                  `json:"base"`
	Decorator  string                  `json:"decorator"`
	Defaults   valueobjects.Attributes `json:"defaults,omitempty"`
	UISchema   json.RawMessage         `json:"uiSchema,omitempty"`
	Overridden bool                    `json:"overridden"`
}

// Registry maps variant names to resolved variants. Overrides are merged
// over the builtins when loaded, so lookups never merge.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]*definition
	source   string
	logger   *zap.Logger
}

// NewRegistry returns a registry holding only the builtins
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{variants: builtins(), logger: logger}
}

// Load fetches the override document at location and replaces the registry
// contents with builtins merged with the overrides. Any failure leaves the
// registry with builtins only. It returns the number of overrides applied.
func (r *Registry) Load(ctx context.Context, fetcher ports.DocumentFetcher, location string) int {
	if location == "" || fetcher == nil {
		r.Reset()
		return 0
	}
	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			r.logger.Debug("No node types document, using builtins", zap.String("location", location))
		} else {
			r.logger.Warn("Failed to fetch node types, using builtins", zap.String("location", location), zap.Error(err))
		}
		r.Reset()
		return 0
	}
	overrides, err := ParseOverrides(data)
	if err != nil {
		r.logger.Warn("Ignoring malformed node types document", zap.String("location", location), zap.Error(err))
		r.Reset()
		return 0
	}
	r.Apply(overrides, location)
	return len(overrides)
}

// Apply installs builtins merged with overrides
func (r *Registry) Apply(overrides map[string]Override, source string) {
	merged := builtins()
	for name, o := range overrides {
		merged[name] = merge(name, merged[name], merged[VariantPlain], o)
	}

	r.mu.Lock()
	r.variants = merged
	r.source = source
	r.mu.Unlock()

	r.logger.Info("Node types loaded", zap.Int("overrides", len(overrides)), zap.String("source", source))
}

// Reset drops all overrides
func (r *Registry) Reset() {
	r.mu.Lock()
	r.variants = builtins()
	r.source = ""
	r.mu.Unlock()
}

func merge(name string, builtin, plain *definition, o Override) *definition {
	base := plain
	if builtin != nil {
		base = builtin
	}
	out := &definition{
		name:          name,
		base:          base.base,
		decoratorName: base.decoratorName,
		decorate:      base.decorate,
		defaults:      base.defaults.Clone(),
		uiSchema:      base.uiSchema,
		overridden:    true,
	}
	switch entities.Shape(o.Base) {
	case entities.ShapeCircle, entities.ShapeSquare:
		out.base = entities.Shape(o.Base)
	}
	if fn, ok := decorators[o.Decorator]; ok {
		out.decoratorName = o.Decorator
		out.decorate = fn
	}
	if len(o.Defaults) > 0 {
		out.defaults = out.defaults.Merge(o.Defaults)
	}
	if len(o.UISchema) > 0 {
		out.uiSchema = o.UISchema
	}
	return out
}

// Resolve returns the named variant, or plain when unknown
func (r *Registry) Resolve(name string) Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.variants[name]; ok {
		return v
	}
	return r.variants[VariantPlain]
}

// Decorate computes the decoration for a node using its variant
func (r *Registry) Decorate(node *entities.Node) Decoration {
	return r.Resolve(node.Variant()).Decorate(node)
}

// Source returns the location of the applied overrides, or "" for builtins
func (r *Registry) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// List describes every variant in name order
func (r *Registry) List() []VariantInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VariantInfo, 0, len(r.variants))
	for _, d := range r.variants {
		out = append(out, VariantInfo{
			Name:       d.name,
			Base:       string(d.base),
			Decorator:  d.decoratorName,
			Defaults:   d.defaults.Clone(),
			UISchema:   d.uiSchema,
			Overridden: d.overridden,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
