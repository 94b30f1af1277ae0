package di

import (
	"context"
	"fmt"
	"time"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/services"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/messaging/eventbridge"
	"thoughtgraph/infrastructure/persistence/dynamodb"
	"thoughtgraph/infrastructure/persistence/memory"
	"thoughtgraph/infrastructure/persistence/mongodb"
	"thoughtgraph/interfaces/http/rest"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
)

const (
	mongoConnectTimeout = 10 * time.Second
	tracingFlushTimeout = 5 * time.Second
)

// ProvideLevel creates the runtime adjustable log level
func ProvideLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := cfg.Level()
	if err != nil {
		return zap.AtomicLevel{}, err
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "thoughtgraph")), nil
}

// ProvideAWSConfig creates AWS configuration. In Lambda with tracing enabled
// the SDK clients are instrumented with X-Ray.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if cfg.IsLambda && cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideBackend opens the store selected by STORE_BACKEND
func ProvideBackend(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (*Backend, func(), error) {
	var backend *Backend

	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		store := dynamodb.NewStore(client, cfg.DynamoDBTable, logger)
		backend = &Backend{Name: cfg.StoreBackend, Thoughts: store.Thoughts(), Users: store.Users(), lifecycle: store}

	case config.BackendMongoDB:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, mongoConnectTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		backend = &Backend{Name: cfg.StoreBackend, Thoughts: store.Thoughts(), Users: store.Users(), lifecycle: store}

	case config.BackendMemory:
		store := memory.NewStore()
		backend = &Backend{Name: cfg.StoreBackend, Thoughts: store.Thoughts(), Users: store.Users(), lifecycle: store}

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("Store initialized", zap.String("backend", backend.Name))
	return backend, func() { backend.close(logger) }, nil
}

// ProvideThoughtRepository exposes the thought repository of the backend
func ProvideThoughtRepository(backend *Backend) ports.ThoughtRepository {
	return backend.Thoughts
}

// ProvideUserRepository exposes the user repository of the backend
func ProvideUserRepository(backend *Backend) ports.UserRepository {
	return backend.Users
}

// ProvideEventPublisher publishes to EventBridge when EVENT_BUS_NAME is set
// and discards events otherwise
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		logger.Info("No event bus configured, domain events are discarded")
		return ports.NoopPublisher{}
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("thoughtgraph")
}

// ProvideMetricsRecorder records protocol metrics in Prometheus and, when
// ENABLE_METRICS is set, in CloudWatch
func ProvideMetricsRecorder(cfg *config.Config, awsCfg aws.Config, collector *observability.Collector, logger *zap.Logger) ports.MetricsRecorder {
	recorders := observability.Recorders{collector}
	if cfg.EnableMetrics {
		namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
		recorders = append(recorders, observability.NewMetrics(namespace, awscloudwatch.NewFromConfig(awsCfg), logger))
	}
	return recorders
}

// ProvideTracing installs the OpenTelemetry tracer provider when tracing is
// enabled outside Lambda. Lambda traces through X-Ray instead.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (observability.ShutdownFunc, func(), error) {
	if !cfg.EnableTracing || cfg.IsLambda {
		noop := func(context.Context) error { return nil }
		return noop, func() {}, nil
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "thoughtgraph",
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), tracingFlushTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Error("Failed to shut down tracing", zap.Error(err))
		}
	}
	return shutdown, cleanup, nil
}

// ProvideThoughtStore creates the thought store
func ProvideThoughtStore(repo ports.ThoughtRepository, cfg *config.Config, logger *zap.Logger) *services.ThoughtStore {
	return services.NewThoughtStore(repo, logger, cfg.StoreCallTimeout)
}

// ProvideReactionSet creates the reaction set
func ProvideReactionSet(repo ports.ThoughtRepository, publisher ports.EventPublisher, cfg *config.Config, logger *zap.Logger) *services.ReactionSet {
	return services.NewReactionSet(repo, publisher, logger, cfg.StoreCallTimeout)
}

// ProvideIntegrityCoordinator creates the coordinator for multi-document protocols
func ProvideIntegrityCoordinator(
	thoughts *services.ThoughtStore,
	reactions *services.ReactionSet,
	users ports.UserRepository,
	publisher ports.EventPublisher,
	metrics ports.MetricsRecorder,
	cfg *config.Config,
	logger *zap.Logger,
) *services.IntegrityCoordinator {
	return services.NewIntegrityCoordinator(thoughts, reactions, users, publisher, metrics, logger, cfg.StoreCallTimeout)
}

// ProvideUserStore creates the user store
func ProvideUserStore(
	users ports.UserRepository,
	thoughts *services.ThoughtStore,
	coordinator *services.IntegrityCoordinator,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *services.UserStore {
	return services.NewUserStore(users, thoughts, coordinator, publisher, logger, cfg.StoreCallTimeout)
}

// ProvideErrorHandler creates the HTTP error renderer. Development builds
// include causes and stack traces in responses.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	graph *services.SocialGraph,
	errorHandler *pkgerrors.ErrorHandler,
	backend *Backend,
	collector *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(graph, errorHandler, backend, collector, rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		CircuitBreaker: cfg.StoreBackend != config.BackendMemory,
	}, logger)
}

// ProvideConfigWatcher watches CONFIG_FILE and applies log level changes.
// It returns nil when the configuration did not come from a file.
func ProvideConfigWatcher(cfg *config.Config, level zap.AtomicLevel, logger *zap.Logger) (*config.Watcher, func(), error) {
	if cfg.ConfigFile == "" || cfg.IsLambda {
		return nil, func() {}, nil
	}

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.OnChange(config.LevelUpdater(level, logger))
	return watcher, watcher.Stop, nil
}
