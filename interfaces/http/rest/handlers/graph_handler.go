package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// GraphHandler handles whole-document requests: export, import, load and
// the open/save file pair.
type GraphHandler struct {
	store        *store.Store
	files        ports.DocumentFiles
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(
	st *store.Store,
	files ports.DocumentFiles,
	logger *zap.Logger,
	errorHandler *pkgerrors.ErrorHandler,
) *GraphHandler {
	return &GraphHandler{
		store:        st,
		files:        files,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// LoadGraphRequest names a URL or file path to fetch a document from
type LoadGraphRequest struct {
	Location string `json:"location" validate:"required,max=2048"`
}

// OpenGraphRequest names a local file to open
type OpenGraphRequest struct {
	Path string `json:"path" validate:"required,max=1024"`
}

// SaveGraphRequest names the file to save to; blank reuses the last path
type SaveGraphRequest struct {
	Path string `json:"path,omitempty" validate:"omitempty,max=1024"`
}

// SaveGraphResponse reports where the document was written
type SaveGraphResponse struct {
	Path string `json:"path"`
}

// ExportGraph handles GET /graph
func (h *GraphHandler) ExportGraph(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.store.ExportGraph())
}

// ImportGraph handles PUT /graph. The body is a serialized graph.
func (h *GraphHandler) ImportGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidationError("unreadable request body").WithCause(err))
		return
	}
	report, err := h.store.LoadGraphFromJSON(r.Context(), data)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

// LoadGraph handles POST /graph/load
func (h *GraphHandler) LoadGraph(w http.ResponseWriter, r *http.Request) {
	var req LoadGraphRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	report, err := h.store.LoadGraphFromLocation(r.Context(), req.Location)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

// OpenGraph handles POST /graph/open
func (h *GraphHandler) OpenGraph(w http.ResponseWriter, r *http.Request) {
	var req OpenGraphRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	data, ok, err := h.files.Open(r.Context(), req.Path)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if !ok {
		h.errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("document").WithCode("DOCUMENT_NOT_FOUND").WithDetail("path", req.Path))
		return
	}
	report, err := h.store.LoadGraphFromJSON(r.Context(), data)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, report)
}

// SaveGraph handles POST /graph/save
func (h *GraphHandler) SaveGraph(w http.ResponseWriter, r *http.Request) {
	var req SaveGraphRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	data, err := h.store.ExportJSON()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	path, err := h.files.Save(r.Context(), req.Path, data)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, SaveGraphResponse{Path: path})
}
