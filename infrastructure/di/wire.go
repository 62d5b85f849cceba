//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideErrorHandler,
	ProvideDomainConfig,
	ProvideCollector,
	ProvideFetcher,
	ProvideSnapshotStore,
	ProvideDocumentFiles,
	ProvideStore,
	ProvideFilterState,
	ProvideIndexer,
	ProvideFilterSync,
	ProvideRegistry,
	ProvideHub,
	ProvideBroadcaster,
	ProvideLiveServer,
	ProvideForwarder,
	ProvideHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases resources in reverse order of construction.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
