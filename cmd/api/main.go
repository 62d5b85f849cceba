package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/di"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env := config.EnvironmentFromEnv()
	loader := config.NewLoader(os.Getenv("CONFIG_DIR"), env)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	logger.Info("Configuration loaded", zap.Strings("sources", cfg.LoadedFrom))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.Tracing,
		ServiceName: cfg.Observability.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Observability.OTLPEndpoint,
	}, logger)
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	watcher, err := config.NewWatcher(loader, cfg, logger.Named("config"))
	if err != nil {
		logger.Warn("Configuration hot reloading unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
		watcher.OnChange(func(next *config.Config) {
			var level zapcore.Level
			if err := level.UnmarshalText([]byte(next.Log.Level)); err == nil {
				container.LogLevel.SetLevel(level)
			}
			if next.Registry.Location != "" {
				container.Registry.Load(ctx, container.Fetcher, next.Registry.Location)
			} else {
				container.Registry.Reset()
			}
		})
	}

	if container.Snapshots != nil {
		restored, report, err := container.Store.RestoreSnapshot(ctx)
		switch {
		case err != nil:
			logger.Warn("Failed to restore snapshot", zap.Error(err))
		case restored:
			logger.Info("Snapshot restored", zap.Int("nodes", report.Nodes), zap.Int("edges", report.Edges))
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", string(cfg.Environment)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if container.Snapshots != nil {
		if err := container.Store.SaveSnapshot(shutdownCtx); err != nil {
			logger.Warn("Failed to save snapshot on shutdown", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracing shutdown error", zap.Error(err))
	}

	cleanup()
	log.Println("Server stopped")
}
