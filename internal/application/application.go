package application

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/api"
	"github.com/eugenenazirov/fair-rent/internal/config"
	"github.com/eugenenazirov/fair-rent/internal/division"
	"github.com/eugenenazirov/fair-rent/internal/metrics"
	"github.com/eugenenazirov/fair-rent/internal/solver"
	"github.com/eugenenazirov/fair-rent/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage  storage.Storage
	service  *division.Service
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	simplex := solver.NewSimplex(
		solver.WithTolerance(cfg.SolverTolerance),
		solver.WithMaxNodes(cfg.SolverMaxNodes),
	)
	service := division.New(simplex,
		division.WithLogger(logger),
		division.WithRecorder(m),
		division.WithMaxDescentRounds(cfg.MaxDescentRounds),
	)
	store := storage.NewMemoryStorage(storage.WithMaxRecords(cfg.MaxStoredDivisions))

	handler := api.NewHandler(service, store,
		api.WithDefaultMethod(cfg.DefaultMethod),
		api.WithSolverTimeout(cfg.SolverTimeout),
		api.WithStoredGauge(m),
		api.WithHandlerLogger(logger),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	rootHandler, err := BuildRootHandler(apiRouter, metricsHandler)
	if err != nil {
		return nil, err
	}

	return &App{
		storage:  store,
		service:  service,
		metrics:  m,
		registry: registry,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, rootHandler),
	}, nil
}

// BuildRootHandler mounts the API router under /api/ and the metrics
// exposition at /metrics.
func BuildRootHandler(apiHandler, metricsHandler http.Handler) (http.Handler, error) {
	if apiHandler == nil {
		return nil, errors.New("api handler is required")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
