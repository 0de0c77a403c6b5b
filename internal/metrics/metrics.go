// Package metrics holds the Prometheus instrumentation for the API.
//
// Exposed series:
//   - cost_api_http_requests_total{route,method,status}
//   - cost_api_http_request_duration_seconds{route}
//   - cost_api_upstream_requests_total{report,outcome}
//   - cost_api_upstream_request_duration_seconds{report}
//   - cost_api_build_info{version,git_commit,build_date,go_version}
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/aws-cost-api/internal/version"
)

// Upstream call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics records HTTP and billing API activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	buildInfo        *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cost_api_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cost_api_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cost_api_upstream_requests_total",
				Help: "Total number of Cost Explorer queries by report and outcome",
			},
			[]string{"report", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cost_api_upstream_request_duration_seconds",
				Help:    "Duration of Cost Explorer queries in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"report"},
		),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cost_api_build_info",
				Help: "Build version information",
			},
			[]string{"version", "git_commit", "build_date", "go_version"},
		),
	}

	info := version.Info()
	m.buildInfo.With(prometheus.Labels{
		"version":    info.Version,
		"git_commit": info.GitCommit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
	}).Set(1)

	for _, c := range []prometheus.Collector{
		m.httpRequests,
		m.httpDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		m.buildInfo,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveRequest records one handled HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveUpstream records one billing query made on behalf of report
func (m *Metrics) ObserveUpstream(report string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.upstreamRequests.WithLabelValues(report, outcome).Inc()
	m.upstreamDuration.WithLabelValues(report).Observe(d.Seconds())
}
