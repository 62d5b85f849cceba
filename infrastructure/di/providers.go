package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/filters"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/ports"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/render"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/application/store"
	domainconfig "github.com/SubjectCarterSoftware/WhoOwnsThis/domain/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/core/entities"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/fetch"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/messaging"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/messaging/eventbridge"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/observability"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/persistence/file"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/http/rest"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/interfaces/websocket"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
)

const metricsNamespace = "whoownsthis"

// ProvideLogLevel parses the configured log level. Unknown levels fall back to info.
func ProvideLogLevel(cfg *config.Config) zap.AtomicLevel {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}
	return level
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, func(), error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	logger = logger.With(zap.String("environment", string(cfg.Environment)))
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideErrorHandler creates the HTTP error handler. Stack traces are
// included in responses outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideDomainConfig derives the domain settings
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return cfg.DomainConfig()
}

// ProvideCollector returns the Prometheus collector, or nil when metrics are off
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Observability.Metrics {
		return nil
	}
	return observability.NewCollector(metricsNamespace)
}

// ProvideFetcher creates the document fetcher behind its circuit breaker
func ProvideFetcher(cfg *config.Config, logger *zap.Logger) *fetch.Fetcher {
	return fetch.NewFetcher(cfg.Registry.FetchTimeout, logger)
}

// ProvideSnapshotStore opens the configured snapshot backend
func ProvideSnapshotStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SnapshotStore, func(), error) {
	return persistence.NewSnapshotStore(ctx, cfg.Snapshot, logger)
}

// ProvideDocumentFiles creates the open/save file pair confined to the documents root
func ProvideDocumentFiles(cfg *config.Config, logger *zap.Logger) *file.Documents {
	return file.NewDocuments(cfg.Files.Root, logger)
}

// ProvideStore creates the graph store. With a collector, every store
// operation and change event is recorded. File locations loaded through the
// store resolve inside the documents root.
func ProvideStore(
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	fetcher *fetch.Fetcher,
	snapshots ports.SnapshotStore,
	collector *observability.Collector,
	logger *zap.Logger,
) (*store.Store, func()) {
	var observer ports.StoreObserver
	if collector != nil {
		observer = collector
	}
	st := store.New(store.Options{
		Config:        domainCfg,
		Normalizer:    entities.NewNormalizer(domainCfg, nil),
		Layout:        cfg.LayoutSettings(),
		Fetcher:       fetcher.Within(cfg.Files.Root),
		Snapshots:     snapshots,
		AutosaveDelay: cfg.Snapshot.AutosaveDelay,
		Observer:      observer,
		Logger:        logger.Named("store"),
	})

	unsubscribe := func() {}
	if collector != nil {
		unsubscribe = st.Subscribe(collector.ObserveEvent)
	}
	return st, func() {
		unsubscribe()
		st.Close()
	}
}

// ProvideFilterState creates the empty filter state
func ProvideFilterState(logger *zap.Logger) *filters.State {
	return filters.NewState(logger.Named("filters"))
}

// ProvideIndexer creates the facet indexer
func ProvideIndexer(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *filters.Indexer {
	return filters.NewIndexer(domainCfg, logger.Named("facets"))
}

// ProvideFilterSync attaches the debounced facet sync to the store
func ProvideFilterSync(
	cfg *config.Config,
	st *store.Store,
	state *filters.State,
	indexer *filters.Indexer,
	collector *observability.Collector,
	logger *zap.Logger,
) (*filters.Sync, func()) {
	var hook filters.RecomputeHook
	if collector != nil {
		hook = collector.ObserveRecompute
	}
	sync := filters.Attach(st, state, indexer, cfg.Filters.Debounce, logger.Named("facets"), hook)
	return sync, sync.Detach
}

// ProvideRegistry creates the variant registry and applies the node-type
// overrides when a location is configured
func ProvideRegistry(ctx context.Context, cfg *config.Config, fetcher *fetch.Fetcher, logger *zap.Logger) *render.Registry {
	reg := render.NewRegistry(logger.Named("variants"))
	if cfg.Registry.Location != "" {
		reg.Load(ctx, fetcher, cfg.Registry.Location)
	}
	return reg
}

// ProvideHub starts the live feed hub
func ProvideHub(collector *observability.Collector, logger *zap.Logger) (*websocket.Hub, func()) {
	var opts []websocket.HubOption
	if collector != nil {
		opts = append(opts, websocket.WithConnectionGauge(func(n int) {
			collector.LiveClients.Set(float64(n))
		}))
	}
	hub := websocket.NewHub(logger.Named("live"), opts...)
	go hub.Run()
	return hub, hub.Stop
}

// ProvideBroadcaster relays store and filter changes to the hub
func ProvideBroadcaster(hub *websocket.Hub, st *store.Store, state *filters.State, logger *zap.Logger) (*websocket.Broadcaster, func()) {
	b := websocket.NewBroadcaster(hub, st, state, logger.Named("live"))
	return b, b.Close
}

// ProvideLiveServer creates the WebSocket upgrade handler
func ProvideLiveServer(cfg *config.Config, hub *websocket.Hub, logger *zap.Logger) *websocket.Server {
	wsCfg := websocket.DefaultServerConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		wsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	return websocket.NewServer(hub, wsCfg, logger.Named("live"))
}

// ProvideForwarder exports structural change events to EventBridge.
// It returns nil when event export is disabled.
func ProvideForwarder(ctx context.Context, cfg *config.Config, st *store.Store, logger *zap.Logger) (*messaging.Forwarder, func(), error) {
	if !cfg.Events.Enabled {
		return nil, func() {}, nil
	}
	client, err := eventbridge.NewClient(ctx, cfg.Events.Region)
	if err != nil {
		return nil, nil, err
	}
	publisher := eventbridge.NewPublisher(client, cfg.Events.BusName, cfg.Events.Source, logger.Named("events"))
	fwd := messaging.StartForwarder(st, publisher, messaging.DefaultForwarderConfig(), logger.Named("events"))
	return fwd, fwd.Stop, nil
}

// ProvideHandler builds the HTTP handler
func ProvideHandler(
	cfg *config.Config,
	st *store.Store,
	state *filters.State,
	sync *filters.Sync,
	registry *render.Registry,
	files *file.Documents,
	fetcher *fetch.Fetcher,
	live *websocket.Server,
	collector *observability.Collector,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) http.Handler {
	router := rest.NewRouter(rest.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ServiceName:    cfg.Observability.ServiceName,
		Tracing:        cfg.Observability.Tracing,
	}, rest.Dependencies{
		Store:        st,
		Filters:      state,
		Sync:         sync,
		Registry:     registry,
		Files:        files,
		Fetcher:      fetcher,
		Live:         live,
		Collector:    collector,
		Logger:       logger.Named("http"),
		ErrorHandler: errorHandler,
	})
	return router.Setup()
}
