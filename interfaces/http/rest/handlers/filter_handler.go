package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// FilterHandler exposes the facet filter state. Criteria changes are applied
// immediately; the facet index follows after the sync debounce unless a
// recompute is requested.
type FilterHandler struct {
	state        *filters.State
	sync         *filters.Sync
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewFilterHandler creates a new filter handler. sync may be nil.
func NewFilterHandler(state *filters.State, sync *filters.Sync, logger *zap.Logger, errorHandler *pkgerrors.ErrorHandler) *FilterHandler {
	return &FilterHandler{
		state:        state,
		sync:         sync,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// SelectValuesRequest replaces the selected values of one facet
type SelectValuesRequest struct {
	Values []string `json:"values" validate:"omitempty,dive,max=512"`
}

// ToggleValueRequest flips one facet value
type ToggleValueRequest struct {
	Value string `json:"value" validate:"required,max=512"`
}

// SearchRequest sets the free-text search; blank clears it
type SearchRequest struct {
	Query string `json:"query" validate:"max=512"`
}

// ExpressionRequest sets the CEL filter expression; blank clears it
type ExpressionRequest struct {
	Expression string `json:"expression" validate:"max=4096"`
}

// GetFilters handles GET /filters
func (h *FilterHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// SelectValues handles PUT /filters/facets/{facet}
func (h *FilterHandler) SelectValues(w http.ResponseWriter, r *http.Request) {
	var req SelectValuesRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.state.SetSelected(chi.URLParam(r, "facet"), req.Values)
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// ToggleValue handles POST /filters/facets/{facet}/toggle
func (h *FilterHandler) ToggleValue(w http.ResponseWriter, r *http.Request) {
	var req ToggleValueRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.state.ToggleValue(chi.URLParam(r, "facet"), req.Value)
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// ClearGroup handles DELETE /filters/facets/{facet}
func (h *FilterHandler) ClearGroup(w http.ResponseWriter, r *http.Request) {
	h.state.ClearGroup(chi.URLParam(r, "facet"))
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// ClearAll handles DELETE /filters
func (h *FilterHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.state.ClearAll()
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// SetSearch handles PUT /filters/search
func (h *FilterHandler) SetSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.state.SetSearch(req.Query)
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// SetExpression handles PUT /filters/expression. A compile error leaves
// the previous expression in place.
func (h *FilterHandler) SetExpression(w http.ResponseWriter, r *http.Request) {
	var req ExpressionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.state.SetExpression(req.Expression); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}

// Recompute handles POST /filters/recompute, rebuilding the facet index now
func (h *FilterHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		h.errorHandler.HandleStatus(w, r, http.StatusServiceUnavailable, "facet sync is not running")
		return
	}
	h.sync.Recompute()
	respondJSON(w, h.logger, http.StatusOK, h.state.View())
}
