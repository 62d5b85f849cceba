package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/layout"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// SessionHandler covers the editing session around the document:
// selection, undo/redo history and layouts.
type SessionHandler struct {
	store        *store.Store
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(st *store.Store, logger *zap.Logger, errorHandler *pkgerrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		store:        st,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// SelectRequest replaces the node and/or edge selection. An omitted list
// leaves that half of the selection unchanged.
type SelectRequest struct {
	Nodes *[]string `json:"nodes,omitempty"`
	Edges *[]string `json:"edges,omitempty"`
}

// RunLayoutRequest names the layout to start
type RunLayoutRequest struct {
	Name string `json:"name" validate:"required,oneof=forceatlas2 circular"`
}

// TravelResponse reports whether undo/redo moved and the resulting history
type TravelResponse struct {
	Applied bool               `json:"applied"`
	History store.HistoryState `json:"history"`
}

// GetSelection handles GET /selection
func (h *SessionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.store.Selection())
}

// SetSelection handles PUT /selection
func (h *SessionHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	sel := h.store.Selection()
	if req.Nodes != nil {
		sel = h.store.SelectNodes(*req.Nodes)
	}
	if req.Edges != nil {
		sel = h.store.SelectEdges(*req.Edges)
	}
	respondJSON(w, h.logger, http.StatusOK, sel)
}

// DeleteSelection handles DELETE /selection by removing everything selected
func (h *SessionHandler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSelection(r.Context()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondNoContent(w)
}

// GetHistory handles GET /history
func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.store.HistoryState())
}

// Undo handles POST /history/undo
func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	applied := h.store.Undo(r.Context())
	respondJSON(w, h.logger, http.StatusOK, TravelResponse{Applied: applied, History: h.store.HistoryState()})
}

// Redo handles POST /history/redo
func (h *SessionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	applied := h.store.Redo(r.Context())
	respondJSON(w, h.logger, http.StatusOK, TravelResponse{Applied: applied, History: h.store.HistoryState()})
}

// GetLayout handles GET /layout
func (h *SessionHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.store.Layout())
}

// RunLayout handles POST /layout
func (h *SessionHandler) RunLayout(w http.ResponseWriter, r *http.Request) {
	var req RunLayoutRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.store.RunLayout(r.Context(), req.Name); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	status := http.StatusOK
	if req.Name == layout.NameForceAtlas2 {
		status = http.StatusAccepted
	}
	respondJSON(w, h.logger, status, h.store.Layout())
}

// StopLayout handles DELETE /layout
func (h *SessionHandler) StopLayout(w http.ResponseWriter, r *http.Request) {
	h.store.StopLayout()
	respondJSON(w, h.logger, http.StatusOK, h.store.Layout())
}
