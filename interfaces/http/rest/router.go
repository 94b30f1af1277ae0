package rest

import (
	"context"
	"net/http"
	"time"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/services"
	"thoughtgraph/interfaces/http/rest/handlers"
	"thoughtgraph/interfaces/http/rest/middleware"
	pkgerrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// RouterConfig holds the switches of the HTTP surface
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	CircuitBreaker bool
}

// Router creates and configures the HTTP router
type Router struct {
	graph     *services.SocialGraph
	errors    *pkgerrors.ErrorHandler
	store     ports.HealthChecker
	collector *observability.Collector
	config    RouterConfig
	logger    *zap.Logger
}

// NewRouter creates a new router instance. A nil collector disables the
// Prometheus middleware and the /metrics route.
func NewRouter(
	graph *services.SocialGraph,
	errorHandler *pkgerrors.ErrorHandler,
	store ports.HealthChecker,
	collector *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		graph:     graph,
		errors:    errorHandler,
		store:     store,
		collector: collector,
		config:    config,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		if rt.config.CircuitBreaker {
			r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api"), rt.errors, rt.logger))
		}

		r.Route("/thoughts", func(r chi.Router) {
			thoughtHandler := handlers.NewThoughtHandler(rt.graph, rt.errors, rt.logger)
			r.Get("/", thoughtHandler.ListThoughts)
			r.Post("/", thoughtHandler.CreateThought)
			r.Get("/{thoughtId}", thoughtHandler.GetThought)
			r.Put("/{thoughtId}", thoughtHandler.UpdateThought)
			r.Delete("/{thoughtId}", thoughtHandler.DeleteThought)
			r.Post("/{thoughtId}/reactions", thoughtHandler.AddReaction)
			r.Delete("/{thoughtId}/reactions/{reactionId}", thoughtHandler.RemoveReaction)
		})

		r.Route("/users", func(r chi.Router) {
			userHandler := handlers.NewUserHandler(rt.graph, rt.errors, rt.logger)
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{userId}", userHandler.GetUser)
			r.Put("/{userId}", userHandler.UpdateUser)
			r.Delete("/{userId}", userHandler.DeleteUser)
			r.Post("/{userId}/friends/{friendId}", userHandler.AddFriend)
			r.Delete("/{userId}/friends/{friendId}", userHandler.RemoveFriend)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "Route not found")
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the store answers a ping
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
