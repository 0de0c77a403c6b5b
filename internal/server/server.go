package server

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/zgpcy/aws-cost-api/internal/config"
	"github.com/zgpcy/aws-cost-api/internal/logger"
	"github.com/zgpcy/aws-cost-api/internal/metrics"
	"github.com/zgpcy/aws-cost-api/internal/report"
)

//go:embed openapi.json
var openAPIDocument []byte

// HTTP server timeout constants
const (
	DefaultReadTimeout  = 15 * time.Second // Maximum duration for reading the entire request
	DefaultWriteTimeout = 45 * time.Second // Must exceed the billing API timeout
	DefaultIdleTimeout  = 60 * time.Second // Maximum amount of time to wait for the next request
)

// WelcomeMessage is returned by the root endpoint
const WelcomeMessage = "Welcome to the AWS Cost Explorer API. Use the /docs endpoint to see the API documentation."

// Reporter produces the cost reports served by the API
type Reporter interface {
	TotalCost(ctx context.Context) (*report.TotalCostReport, error)
	CostByService(ctx context.Context) (*report.ServiceCostReport, error)
	DailyCostTrend(ctx context.Context) (*report.DailyCostReport, error)
	EC2Cost(ctx context.Context) (*report.FilteredCostReport, error)
}

// Server represents the HTTP server
type Server struct {
	server   *http.Server
	reports  Reporter
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *logger.Logger
}

// NewServer creates a new HTTP server.
// A nil gatherer serves the default Prometheus registry.
func NewServer(cfg *config.Config, reports Reporter, m *metrics.Metrics, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		reports:  reports,
		metrics:  m,
		gatherer: gatherer,
		logger:   log,
	}

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.observeRequests)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/", s.handleWelcome)

	r.Get("/total-cost", serveReport(s, report.NameTotalCost, s.reports.TotalCost))
	r.Get("/cost-by-service", serveReport(s, report.NameCostByService, s.reports.CostByService))
	r.Get("/daily-cost-trend", serveReport(s, report.NameDailyCostTrend, s.reports.DailyCostTrend))
	r.Get("/ec2-cost", serveReport(s, report.NameEC2Cost, s.reports.EC2Cost))

	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
