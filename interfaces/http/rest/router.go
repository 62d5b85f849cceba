package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/render"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/aggregates"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/observability"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/http/rest/handlers"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/http/rest/middleware"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/websocket"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

// BreakerState reports the circuit state of a remote dependency
type BreakerState interface {
	State() string
}

// Config holds the HTTP surface settings
type Config struct {
	AllowedOrigins []string
	ServiceName    string
	Tracing        bool
}

// Router creates and configures the HTTP router
type Router struct {
	cfg          Config
	store        *store.Store
	filters      *filters.State
	sync         *filters.Sync
	registry     *render.Registry
	files        ports.DocumentFiles
	fetcher      BreakerState
	live         *websocket.Server
	collector    *observability.Collector
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// Dependencies groups what the router serves. Sync, Fetcher, Live and
// Collector are optional; their routes are omitted when nil.
type Dependencies struct {
	Store        *store.Store
	Filters      *filters.State
	Sync         *filters.Sync
	Registry     *render.Registry
	Files        ports.DocumentFiles
	Fetcher      BreakerState
	Live         *websocket.Server
	Collector    *observability.Collector
	Logger       *zap.Logger
	ErrorHandler *errors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(cfg Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	errorHandler := deps.ErrorHandler
	if errorHandler == nil {
		errorHandler = errors.NewErrorHandler(logger, false)
	}
	return &Router{
		cfg:          cfg,
		store:        deps.Store,
		filters:      deps.Filters,
		sync:         deps.Sync,
		registry:     deps.Registry,
		files:        deps.Files,
		fetcher:      deps.Fetcher,
		live:         deps.Live,
		collector:    deps.Collector,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.Tracing {
		router.Use(middleware.Tracing(rt.cfg.ServiceName))
	}
	if rt.collector != nil {
		router.Use(rt.collector.HTTPMiddleware)
	}

	origins := rt.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}
	if rt.live != nil {
		router.Get("/ws", rt.live.HandleWebSocket)
	}

	graphHandler := handlers.NewGraphHandler(rt.store, rt.files, rt.logger, rt.errorHandler)
	renderHandler := handlers.NewRenderHandler(rt.store, rt.filters, rt.registry, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.store, rt.filters, rt.registry, rt.logger, rt.errorHandler)
	edgeHandler := handlers.NewEdgeHandler(rt.store, rt.logger, rt.errorHandler)
	sessionHandler := handlers.NewSessionHandler(rt.store, rt.logger, rt.errorHandler)
	filterHandler := handlers.NewFilterHandler(rt.filters, rt.sync, rt.logger, rt.errorHandler)
	snapshotHandler := handlers.NewSnapshotHandler(rt.store, rt.logger, rt.errorHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/graph", func(r chi.Router) {
			r.Get("/", graphHandler.ExportGraph)
			r.Put("/", graphHandler.ImportGraph)
			r.Post("/load", graphHandler.LoadGraph)
			r.Post("/open", graphHandler.OpenGraph)
			r.Post("/save", graphHandler.SaveGraph)
			r.Get("/view", renderHandler.GetView)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", nodeHandler.ListNodes)
			r.Post("/", nodeHandler.CreateNode)
			r.Get("/visible", nodeHandler.ListVisibleNodes)
			r.Get("/{key}", nodeHandler.GetNode)
			r.Patch("/{key}", nodeHandler.UpdateNode)
			r.Delete("/{key}", nodeHandler.DeleteNode)
			r.Get("/{key}/decoration", nodeHandler.GetDecoration)
		})

		r.Route("/edges", func(r chi.Router) {
			r.Post("/", edgeHandler.CreateEdge)
			r.Get("/{key}", edgeHandler.GetEdge)
			r.Patch("/{key}", edgeHandler.UpdateEdge)
			r.Delete("/{key}", edgeHandler.DeleteEdge)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSelection)
			r.Put("/", sessionHandler.SetSelection)
			r.Delete("/", sessionHandler.DeleteSelection)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", sessionHandler.GetHistory)
			r.Post("/undo", sessionHandler.Undo)
			r.Post("/redo", sessionHandler.Redo)
		})

		r.Route("/layout", func(r chi.Router) {
			r.Get("/", sessionHandler.GetLayout)
			r.Post("/", sessionHandler.RunLayout)
			r.Delete("/", sessionHandler.StopLayout)
		})

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", filterHandler.GetFilters)
			r.Delete("/", filterHandler.ClearAll)
			r.Put("/search", filterHandler.SetSearch)
			r.Put("/expression", filterHandler.SetExpression)
			r.Post("/recompute", filterHandler.Recompute)
			r.Put("/facets/{facet}", filterHandler.SelectValues)
			r.Post("/facets/{facet}/toggle", filterHandler.ToggleValue)
			r.Delete("/facets/{facet}", filterHandler.ClearGroup)
		})

		r.Route("/snapshot", func(r chi.Router) {
			r.Post("/", snapshotHandler.SaveSnapshot)
			r.Post("/restore", snapshotHandler.RestoreSnapshot)
			r.Delete("/", snapshotHandler.ClearSnapshot)
		})

		r.Get("/variants", renderHandler.ListVariants)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

type readiness struct {
	Status  string `json:"status"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Fetcher string `json:"fetcher,omitempty"`
	Clients int    `json:"clients"`
}

// readinessCheck reports the document size and the state of the remote
// fetcher's circuit breaker
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	out := readiness{Status: "ready"}
	rt.store.Read(func(doc *aggregates.Document) {
		out.Nodes = doc.Order()
		out.Edges = doc.Size()
	})
	if rt.fetcher != nil {
		out.Fetcher = rt.fetcher.State()
	}
	if rt.live != nil {
		out.Clients = rt.live.ConnectionCount()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		rt.logger.Error("Failed to encode readiness", zap.Error(err))
	}
}
