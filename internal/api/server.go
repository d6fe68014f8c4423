// Package api provides the HTTP API server and handlers for the yearlist server.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/listenupapp/yearlist-server/internal/config"
	"github.com/listenupapp/yearlist-server/internal/logger"
	"github.com/listenupapp/yearlist-server/internal/metrics"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/sse"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// authPathPrefix groups the unauthenticated credential endpoints.
const authPathPrefix = "/api/v1/auth/"

// streamPath serves the long-lived sync stream.
const streamPath = "/api/v1/sync/stream"

// Server holds dependencies for HTTP handlers.
type Server struct {
	store           store.Store
	services        *Services
	registry        *ranking.Registry
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	sseManager      *sse.Manager
	sseHandler      *sse.Handler
	authRateLimiter *RateLimiter
	defaultYear     int
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	st store.Store,
	services *Services,
	registry *ranking.Registry,
	sseManager *sse.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:           st,
		services:        services,
		registry:        registry,
		router:          router,
		logger:          logger,
		sseManager:      sseManager,
		sseHandler:      sse.NewHandler(sseManager, GetUserID, logger),
		authRateLimiter: NewRateLimiter(cfg.Server.AuthRatePerMinute, time.Minute, max(cfg.Server.AuthRatePerMinute/2, 1)),
		defaultYear:     cfg.Ranking.DefaultYear,
	}

	s.setupMiddleware(cfg.Server.CORSOrigins, cfg.Server.WriteTimeout)
	s.api = newHumaAPI(router, Version)
	s.setupRoutes()

	return s
}

// newHumaAPI mounts a huma API on router with the envelope and error mapping installed.
func newHumaAPI(router chi.Router, version string) huma.API {
	humaConfig := huma.DefaultConfig("Yearlist API", version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()
	return api
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string, writeTimeout time.Duration) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(writeDeadline(writeTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(s.limitAuthRequests)
	s.router.Use(authMiddleware(s.services.Auth, s.logger))
}

// limitAuthRequests rate limits credential endpoints per client address.
func (s *Server) limitAuthRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, authPathPrefix) {
			RateLimitMiddleware(s.authRateLimiter, s.logger)(next).ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeDeadline bounds response writes for every route except the sync stream.
func writeDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout > 0 && r.URL.Path != streamPath {
				// Recorders and some wrappers cannot set deadlines.
				_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(timeout))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerCatalogRoutes()
	s.registerGroupRoutes()
	s.registerBoardRoutes()
	s.registerCommunityRoutes()

	s.router.Handle("/metrics", metrics.Handler())
	s.router.Get(streamPath, s.sseHandler.ServeHTTP)
}
