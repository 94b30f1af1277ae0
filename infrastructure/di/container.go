package di

import (
	"context"
	"time"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/services"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/interfaces/http/rest"
	"thoughtgraph/pkg/observability"

	"go.uber.org/zap"
)

const closeTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Level     zap.AtomicLevel
	Store     *Backend
	Publisher ports.EventPublisher
	Metrics   ports.MetricsRecorder
	Collector *observability.Collector
	Graph     *services.SocialGraph
	Router    *rest.Router
	Watcher   *config.Watcher
	Tracing   observability.ShutdownFunc

	cleanup func()
}

// NewContainer wires the application for cfg. Close must be called on
// shutdown to stop the watcher, flush traces and disconnect the store.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	container, cleanup, err := InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	container.cleanup = cleanup
	return container, nil
}

// Close releases everything the container owns in reverse construction order
func (c *Container) Close() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
	_ = c.Logger.Sync()
}

// Backend is the store selected by STORE_BACKEND
type Backend struct {
	Name     string
	Thoughts ports.ThoughtRepository
	Users    ports.UserRepository

	lifecycle interface {
		Ping(ctx context.Context) error
		Close(ctx context.Context) error
	}
}

// Ping reports whether the store is reachable
func (b *Backend) Ping(ctx context.Context) error {
	return b.lifecycle.Ping(ctx)
}

func (b *Backend) close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := b.lifecycle.Close(ctx); err != nil {
		logger.Error("Failed to close store", zap.String("backend", b.Name), zap.Error(err))
		return
	}
	logger.Info("Store closed", zap.String("backend", b.Name))
}
