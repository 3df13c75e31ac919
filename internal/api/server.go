// Package api provides the HTTP API server and handlers for Pabliki.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pabliki/pabliki-server/internal/http/response"
	"github.com/pabliki/pabliki-server/internal/locale"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
)

// Options are the dependencies of the HTTP server.
type Options struct {
	Store       store.Store
	Services    *Services
	SSE         *sse.Manager
	Negotiator  *locale.Negotiator // nil disables page routes
	Metrics     *metrics.Metrics
	Registry    *prometheus.Registry // nil disables /metrics
	AuthLimiter *RateLimiter         // nil disables auth rate limiting
	CORSOrigins []string
	// CookieSecure marks the token and locale cookies Secure.
	CookieSecure bool
	Version      string
	Logger       *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store        store.Store
	services     *Services
	sseManager   *sse.Manager
	negotiator   *locale.Negotiator
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	authLimiter  *RateLimiter
	corsOrigins  []string
	cookieSecure bool
	version      string
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:        opts.Store,
		services:     opts.Services,
		sseManager:   opts.SSE,
		negotiator:   opts.Negotiator,
		metrics:      opts.Metrics,
		registry:     opts.Registry,
		authLimiter:  opts.AuthLimiter,
		corsOrigins:  opts.CORSOrigins,
		cookieSecure: opts.CookieSecure,
		version:      version,
		router:       chi.NewRouter(),
		logger:       log,
	}

	s.setupMiddleware()
	s.api = humachi.New(s.router, s.humaConfig())
	RegisterErrorHandler(log)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) humaConfig() huma.Config {
	cfg := huma.DefaultConfig("Pabliki API", s.version)
	cfg.Info.Description = "Bookmark organizer: links, tags, collections, notes and search."
	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Bodies are wrapped in the envelope, so no $schema links inside data.
	cfg.CreateHooks = nil
	cfg.Transformers = append(cfg.Transformers, EnvelopeTransformer)
	return cfg
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
	if len(s.corsOrigins) > 0 {
		s.router.Use(corsMiddleware(s.corsOrigins))
	}
	s.router.Use(noStore)
	if s.services != nil && s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth))
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			response.NotFound(w, "route not found", s.logger)
			return
		}
		http.NotFound(w, r)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()

	if s.services != nil {
		s.registerAuthRoutes()
		s.registerUserRoutes()
		s.registerLinkRoutes()
		s.registerTagRoutes()
		s.registerCollectionRoutes()
		s.registerNoteRoutes()
		s.registerSearchRoutes()
		s.registerActivityRoutes()
	}

	if s.sseManager != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.sseManager, streamUser, s.logger).ServeHTTP)
	}
	if s.registry != nil {
		s.router.Handle("/metrics", metrics.Handler(s.registry))
	}

	s.registerPageRoutes()
}
