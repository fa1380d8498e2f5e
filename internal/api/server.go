// Package api provides HTTP server setup and routing for the forecast
// service.
//
// Purpose:
//
//	This package sets up the chi router with middleware, health/readiness
//	probes, and submission-API route registration, following the teacher's
//	internal/api/server.go shape: one Server wrapping a chi.Mux, health and
//	metrics endpoints unauthenticated, domain routes behind the
//	actor-context middleware.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dairyforecast/herdsim/internal/audit"
	rbacmiddleware "github.com/dairyforecast/herdsim/internal/middleware"
	"github.com/dairyforecast/herdsim/internal/shared/dataaccess"
)

// Server wraps the HTTP server and router.
type Server struct {
	router  *chi.Mux
	logger  *zap.Logger
	port    int
	rbacCfg rbacmiddleware.RBACConfig
	ready   *dataaccess.Registry
}

// Config holds server configuration.
type Config struct {
	Port         int
	Logger       *zap.Logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// EnableRBAC controls whether anonymous requests are rejected
	// (default: true).
	EnableRBAC bool
	// Dependencies for readiness checks.
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
}

// NewServer creates a new HTTP server with configured middleware and
// routes.
func NewServer(cfg Config) *Server {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	auditLogger := audit.NewLogger(cfg.Logger)
	rbacCfg := rbacmiddleware.RBACConfig{
		Logger:     cfg.Logger,
		Audit:      auditLogger,
		EnableRBAC: cfg.EnableRBAC,
	}

	ready := dataaccess.NewRegistry()
	if cfg.Pool != nil {
		ready.Register("postgres", func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			return cfg.Pool.Ping(pingCtx)
		})
	}
	if cfg.RedisClient != nil {
		ready.Register("redis", func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			return cfg.RedisClient.Ping(pingCtx).Err()
		})
	}

	s := &Server{
		router:  r,
		logger:  cfg.Logger,
		port:    cfg.Port,
		rbacCfg: rbacCfg,
		ready:   ready,
	}

	r.Route("/forecasts/v1/status", func(r chi.Router) {
		r.Get("/healthz", healthzHandler)
		r.Get("/readyz", dataaccess.Handler(s.ready))
	})

	r.Handle("/metrics", promhttp.Handler())

	return s
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterJobRoutes registers the submission API: create, fetch, stream,
// result, export, history and bulk-delete.
func (s *Server) RegisterJobRoutes(handler *JobsHandler) {
	s.router.Route("/forecasts/v1", func(r chi.Router) {
		r.Use(rbacmiddleware.RBAC(s.rbacCfg))
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", handler.CreateJob)
			r.Get("/", handler.ListJobs)
			r.Post("/delete", handler.BulkDelete)
			r.Get("/{jobId}", handler.GetJob)
			r.Get("/{jobId}/stream", handler.StreamJob)
			r.Get("/{jobId}/result", handler.GetResult)
			r.Get("/{jobId}/export/{kind}", handler.GetExport)
		})
	})
}

// RegisterDatasetRoutes registers the dataset upload/fetch routes.
func (s *Server) RegisterDatasetRoutes(handler *DatasetsHandler) {
	s.router.Route("/forecasts/v1", func(r chi.Router) {
		r.Use(rbacmiddleware.RBAC(s.rbacCfg))
		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", handler.Upload)
			r.Get("/{datasetId}", handler.Get)
		})
	})
}

// RegisterScenarioRoutes registers saved scenario-preset CRUD routes.
func (s *Server) RegisterScenarioRoutes(handler *ScenariosHandler) {
	s.router.Route("/forecasts/v1", func(r chi.Router) {
		r.Use(rbacmiddleware.RBAC(s.rbacCfg))
		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/", handler.Save)
			r.Get("/", handler.List)
			r.Get("/{scenarioId}", handler.Get)
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

