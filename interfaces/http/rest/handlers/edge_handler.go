package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	store        *store.Store
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(st *store.Store, logger *zap.Logger, errorHandler *pkgerrors.ErrorHandler) *EdgeHandler {
	return &EdgeHandler{
		store:        st,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// CreateEdgeRequest represents the request body for creating an edge
type CreateEdgeRequest struct {
	Key        string                  `json:"key,omitempty" validate:"omitempty,max=256"`
	Source     string                  `json:"source" validate:"required"`
	Target     string                  `json:"target" validate:"required"`
	Attributes valueobjects.Attributes `json:"attributes"`
	Undirected bool                    `json:"undirected"`
}

// EdgeResponse is the wire form of an edge
type EdgeResponse struct {
	Key        string                  `json:"key"`
	Source     string                  `json:"source"`
	Target     string                  `json:"target"`
	Attributes valueobjects.Attributes `json:"attributes"`
	Undirected bool                    `json:"undirected"`
}

func toEdgeResponse(e *entities.Edge) EdgeResponse {
	return EdgeResponse{
		Key:        e.Key(),
		Source:     e.Source(),
		Target:     e.Target(),
		Attributes: e.Attributes(),
		Undirected: e.IsUndirected(),
	}
}

// CreateEdge handles POST /edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	key, err := h.store.AddEdge(r.Context(), store.EdgeInput{
		Key:        req.Key,
		Source:     req.Source,
		Target:     req.Target,
		Attributes: req.Attributes,
		Undirected: req.Undirected,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, CreatedResponse{Key: key})
}

// GetEdge handles GET /edges/{key}
func (h *EdgeHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := h.store.Edge(chi.URLParam(r, "key"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toEdgeResponse(edge))
}

// UpdateEdge handles PATCH /edges/{key}
func (h *EdgeHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttributesRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.store.UpdateEdgeAttributes(r.Context(), key, req.Attributes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	edge, err := h.store.Edge(key)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toEdgeResponse(edge))
}

// DeleteEdge handles DELETE /edges/{key}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DropEdge(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondNoContent(w)
}
