package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = Sentinel(ErrorTypeNotFound, "NODE_NOT_FOUND", "node not found")

func TestDeriveMatchesSentinel(t *testing.T) {
	err := Derive(errMissing, "node %q not found", "a")

	assert.Equal(t, `node "a" not found`, err.Message)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
	assert.NotEmpty(t, err.StackTrace)
	assert.True(t, stderrors.Is(err, errMissing))
	assert.True(t, stderrors.Is(fmt.Errorf("lookup: %w", err), errMissing))
	assert.True(t, IsNotFound(err))

	other := Sentinel(ErrorTypeNotFound, "EDGE_NOT_FOUND", "edge not found")
	assert.False(t, stderrors.Is(err, other))
}

func TestErrorTypes(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name   string
		err    *AppError
		typ    ErrorType
		status int
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("graph"), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("broken"), ErrorTypeInternal, http.StatusInternalServerError},
		{"timeout", NewTimeoutError("fetch"), ErrorTypeTimeout, http.StatusRequestTimeout},
		{"unavailable", NewUnavailableError("registry"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
		{"storage", NewStorageError("save", cause), ErrorTypeStorage, http.StatusInternalServerError},
		{"network", NewNetworkError("dial", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"external", NewExternalError("eventbridge", cause), ErrorTypeExternal, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}

	storage := NewStorageError("save", cause)
	assert.ErrorIs(t, storage, cause)
	assert.Contains(t, storage.Error(), "caused by: boom")
}

func TestHandlerWritesAppError(t *testing.T) {
	h := NewErrorHandler(nil, false)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/nodes/a", nil)
	r = r.WithContext(contextWithRequestID(r, "req-1"))
	w := httptest.NewRecorder()

	h.Handle(w, r, Derive(errMissing, "node %q not found", "a").WithDetail("key", "a"))

	require.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Type)
	assert.Equal(t, "NODE_NOT_FOUND", body.Code)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Equal(t, "a", body.Details["key"])
	assert.NotContains(t, body.Details, "stack_trace")
}

func TestHandlerHidesPlainErrors(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		message string
	}{
		{"production", false, "An internal error occurred"},
		{"debug", true, "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(nil, tt.debug)
			w := httptest.NewRecorder()
			h.Handle(w, httptest.NewRequest(http.MethodPost, "/api/v1/snapshot", nil), stderrors.New("disk full"))

			require.Equal(t, http.StatusInternalServerError, w.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "INTERNAL", body.Type)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestHandleStatus(t *testing.T) {
	h := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()

	h.HandleStatus(w, httptest.NewRequest(http.MethodPost, "/api/v1/filters/recompute", nil), http.StatusServiceUnavailable, "filter sync is not running")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "UNAVAILABLE", body.Type)
	assert.Equal(t, "filter sync is not running", body.Message)
}

func contextWithRequestID(r *http.Request, id string) context.Context {
	return context.WithValue(r.Context(), middleware.RequestIDKey, id)
}
