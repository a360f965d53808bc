package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry              *prometheus.Registry
	httpRequests          *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	probesTotal           *prometheus.CounterVec
	probeDuration         *prometheus.HistogramVec
	generationRunsTotal   *prometheus.CounterVec
	generationRunDuration prometheus.Histogram
	cameras               *prometheus.GaugeVec
}

// New creates a fresh Metrics registry with HTTP, probe and generation metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "confgen",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by confgen",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "confgen",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by confgen",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	probesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "confgen",
		Name:      "probes_total",
		Help:      "Reachability probes by method and outcome",
	}, []string{"method", "result"})

	probeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "confgen",
		Name:      "probe_duration_seconds",
		Help:      "Duration of single reachability probes",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
	}, []string{"method"})

	generationRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "confgen",
		Name:      "generation_runs_total",
		Help:      "Total number of config generation runs by status",
	}, []string{"status"})

	generationRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "confgen",
		Name:      "generation_run_duration_seconds",
		Help:      "Duration of generation runs from first probe to written document",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	cameras := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "confgen",
		Name:      "cameras",
		Help:      "Cameras in the most recent generation run by reachability",
	}, []string{"state"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		probesTotal,
		probeDuration,
		generationRunsTotal,
		generationRunDuration,
		cameras,
	)

	return &Metrics{
		registry:              registry,
		httpRequests:          httpRequests,
		httpRequestDuration:   httpRequestDuration,
		probesTotal:           probesTotal,
		probeDuration:         probeDuration,
		generationRunsTotal:   generationRunsTotal,
		generationRunDuration: generationRunDuration,
		cameras:               cameras,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveProbe records one reachability probe.
func (m *Metrics) ObserveProbe(method string, reachable bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	m.probesTotal.WithLabelValues(method, result).Inc()
	m.probeDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveGenerationRun records a finished run and the camera split it produced.
func (m *Metrics) ObserveGenerationRun(status string, online, offline int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationRunsTotal.WithLabelValues(status).Inc()
	m.generationRunDuration.Observe(duration.Seconds())
	if status == "succeeded" {
		m.cameras.WithLabelValues("online").Set(float64(online))
		m.cameras.WithLabelValues("offline").Set(float64(offline))
	}
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node_exporter textfile format, for
// one-shot CLI runs that are never scraped.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
