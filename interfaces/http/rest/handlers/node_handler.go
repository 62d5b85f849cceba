package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/render"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/valueobjects"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	store        *store.Store
	filters      *filters.State
	registry     *render.Registry
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(
	st *store.Store,
	state *filters.State,
	registry *render.Registry,
	logger *zap.Logger,
	errorHandler *pkgerrors.ErrorHandler,
) *NodeHandler {
	return &NodeHandler{
		store:        st,
		filters:      state,
		registry:     registry,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// CreateNodeRequest represents the request body for creating a node.
// A blank key is generated.
type CreateNodeRequest struct {
	Key        string                  `json:"key,omitempty" validate:"omitempty,max=256"`
	Attributes valueobjects.Attributes `json:"attributes"`
}

// UpdateAttributesRequest is a partial attribute update; null removes an attribute
type UpdateAttributesRequest struct {
	Attributes valueobjects.Attributes `json:"attributes" validate:"required"`
}

// CreatedResponse carries the key of a new node or edge
type CreatedResponse struct {
	Key string `json:"key"`
}

// NodeResponse is the flattened wire form of a node
type NodeResponse struct {
	Key        string                  `json:"key"`
	Attributes valueobjects.Attributes `json:"attributes"`
}

// ListNodesResponse wraps a node listing
type ListNodesResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Total int            `json:"total"`
}

func toNodeResponse(n *entities.Node) NodeResponse {
	return NodeResponse{Key: n.Key(), Attributes: n.Flatten()}
}

func toListResponse(nodes []*entities.Node) ListNodesResponse {
	out := ListNodesResponse{Nodes: make([]NodeResponse, 0, len(nodes))}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, toNodeResponse(n))
	}
	out.Total = len(out.Nodes)
	return out
}

// ListNodes handles GET /nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, toListResponse(h.store.VisibleNodes(nil)))
}

// ListVisibleNodes handles GET /nodes/visible using the current filter criteria
func (h *NodeHandler) ListVisibleNodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, toListResponse(h.store.VisibleNodes(h.filters.Predicate())))
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	key, err := h.store.AddNode(r.Context(), req.Key, req.Attributes)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, CreatedResponse{Key: key})
}

// GetNode handles GET /nodes/{key}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.Node(chi.URLParam(r, "key"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toNodeResponse(node))
}

// UpdateNode handles PATCH /nodes/{key}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttributesRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.store.UpdateNodeAttributes(r.Context(), key, req.Attributes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	node, err := h.store.Node(key)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toNodeResponse(node))
}

// DeleteNode handles DELETE /nodes/{key}. Incident edges go with it.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DropNode(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondNoContent(w)
}

// GetDecoration handles GET /nodes/{key}/decoration
func (h *NodeHandler) GetDecoration(w http.ResponseWriter, r *http.Request) {
	node, err := h.store.Node(chi.URLParam(r, "key"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, h.registry.Decorate(node))
}
