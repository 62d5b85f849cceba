package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// SnapshotHandler drives the autosave slot by hand
type SnapshotHandler struct {
	store        *store.Store
	logger       *zap.Logger
	errorHandler *pkgerrors.ErrorHandler
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(st *store.Store, logger *zap.Logger, errorHandler *pkgerrors.ErrorHandler) *SnapshotHandler {
	return &SnapshotHandler{
		store:        st,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// RestoreResponse reports whether a snapshot was found and what it held
type RestoreResponse struct {
	Restored bool                    `json:"restored"`
	Report   aggregates.ImportReport `json:"report"`
}

// SaveSnapshot handles POST /snapshot
func (h *SnapshotHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SaveSnapshot(r.Context()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondNoContent(w)
}

// RestoreSnapshot handles POST /snapshot/restore
func (h *SnapshotHandler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	ok, report, err := h.store.RestoreSnapshot(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, RestoreResponse{Restored: ok, Report: report})
}

// ClearSnapshot handles DELETE /snapshot
func (h *SnapshotHandler) ClearSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearSnapshot(r.Context()); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondNoContent(w)
}
