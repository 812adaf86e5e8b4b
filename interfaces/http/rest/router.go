// Package rest exposes the graph over HTTP under /api/v1.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"kaku/application/commands/bus"
	querybus "kaku/application/queries/bus"
	"kaku/interfaces/http/rest/handlers"
	"kaku/interfaces/http/rest/middleware"
	"kaku/pkg/auth"
	pkgerrors "kaku/pkg/errors"
	"kaku/pkg/observability"
)

// ReadinessCheck reports whether the backing store can serve requests
type ReadinessCheck func(ctx context.Context) error

// Options carries the optional parts of the router. Nil fields disable the
// feature they drive.
type Options struct {
	Metrics        *observability.Collector
	Validator      *auth.Validator
	Limiter        *auth.RateLimiter
	AllowedOrigins []string
	Ready          ReadinessCheck
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
	opts       Options
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
	opts Options,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		logger:     logger,
		opts:       opts,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestIDHeader)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	if rt.opts.Metrics != nil {
		router.Use(rt.opts.Metrics.Middleware)
	}
	if len(rt.opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	projects := handlers.NewProjectHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	pois := handlers.NewPoIHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	search := handlers.NewSearchHandler(rt.queryBus, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		if rt.opts.Validator != nil {
			r.Use(auth.Authenticate(rt.opts.Validator, rt.errors))
		}
		if rt.opts.Limiter != nil {
			r.Use(auth.RateLimit(rt.opts.Limiter, rt.errors))
		}

		r.Post("/scribes", projects.RegisterScribe)
		r.Get("/universes/{universeID}/projects", projects.ListUniverseProjects)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", projects.CreateProject)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", projects.GetProject)
				r.Post("/lock", projects.LockProject)
				r.Post("/unlock", projects.UnlockProject)
				r.Get("/categories", projects.CategoryTree)
				r.Get("/search", search.Search)

				r.Post("/notes", pois.CreateNote)
				r.Get("/notes", pois.ListNotes)
				r.Post("/thoughts", pois.CreateThought)
				r.Post("/questions", pois.CreateQuestion)
			})
		})

		r.Route("/notes/{noteID}", func(r chi.Router) {
			r.Get("/", pois.GetNote)
			r.Delete("/", pois.DeleteNote)
		})

		r.Route("/thoughts/{thoughtID}", func(r chi.Router) {
			r.Get("/", pois.GetThought)
			r.Delete("/", pois.ScratchThought)
			r.Post("/refutation", pois.Refute)
			r.Get("/links", pois.GetLinks)
			r.Post("/links", pois.Link)
			r.Post("/tags", pois.Tag)
			r.Post("/categories", pois.Categorize)
			r.Get("/children", pois.GetChildren)
			r.Get("/ancestors", pois.GetAncestors)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			rt.errors.HandleStatus(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
