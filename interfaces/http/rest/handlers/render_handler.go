package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/render"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
)

// RenderHandler serves the canvas-facing render model
type RenderHandler struct {
	store    *store.Store
	filters  *filters.State
	registry *render.Registry
	logger   *zap.Logger
}

// NewRenderHandler creates a new render handler
func NewRenderHandler(st *store.Store, state *filters.State, registry *render.Registry, logger *zap.Logger) *RenderHandler {
	return &RenderHandler{
		store:    st,
		filters:  state,
		registry: registry,
		logger:   logger,
	}
}

// VariantsResponse lists the resolved node variants
type VariantsResponse struct {
	Source   string               `json:"source"`
	Variants []render.VariantInfo `json:"variants"`
}

// GetView handles GET /graph/view
func (h *RenderHandler) GetView(w http.ResponseWriter, r *http.Request) {
	sel := h.store.Selection()
	selected := make(map[string]bool, len(sel.Nodes))
	for _, key := range sel.Nodes {
		selected[key] = true
	}
	pred := h.filters.Predicate()

	var view render.View
	h.store.Read(func(doc *aggregates.Document) {
		view = render.BuildView(doc, h.registry, pred, selected)
	})
	respondJSON(w, h.logger, http.StatusOK, view)
}

// ListVariants handles GET /variants
func (h *RenderHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, VariantsResponse{
		Source:   h.registry.Source(),
		Variants: h.registry.List(),
	})
}
