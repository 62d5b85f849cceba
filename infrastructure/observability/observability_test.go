package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

func TestCollector_Store(t *testing.T) {
	c := NewCollector("test")

	c.ObserveMutation("AddNode", time.Millisecond, nil)
	c.ObserveMutation("AddNode", time.Millisecond, errors.New("dup"))
	c.ObserveRecompute(2*time.Millisecond, 3)
	c.ObserveEvent(events.NewNodeAdded("d", 1, "a"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mutations.WithLabelValues("AddNode", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mutations.WithLabelValues("AddNode", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FacetRecomputes))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.FacetGroups))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DocumentEvents.WithLabelValues(events.TypeNodeAdded)))
}

func TestCollector_HTTP(t *testing.T) {
	c := NewCollector("test")
	r := chi.NewRouter()
	r.Use(c.HTTPMiddleware)
	r.Get("/nodes/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes/a", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/nodes/{key}", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 0.1, sampleRateFor("production"))
	assert.Equal(t, 1.0, sampleRateFor("development"))
	assert.True(t, isLocal("localhost:4317"))
	assert.False(t, isLocal("collector.internal:4317"))
}
