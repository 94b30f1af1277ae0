//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"thoughtgraph/application/services"
	"thoughtgraph/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLevel,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideBackend,
	ProvideThoughtRepository,
	ProvideUserRepository,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideMetricsRecorder,
	ProvideTracing,
	ProvideThoughtStore,
	ProvideReactionSet,
	ProvideIntegrityCoordinator,
	ProvideUserStore,
	services.NewSocialGraph,
	ProvideErrorHandler,
	ProvideRouter,
	ProvideConfigWatcher,
	wire.Struct(new(Container),
		"Config", "Logger", "Level", "Store", "Publisher", "Metrics",
		"Collector", "Graph", "Router", "Watcher", "Tracing"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
