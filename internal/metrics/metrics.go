// Package metrics wraps Prometheus instruments for the server, following the
// Recorder-interface-plus-NoopRecorder shape the teacher repository uses in
// internal/metrics/recorder.go, so the rest of the tree can take a Recorder
// without caring whether metrics are enabled.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder defines the observability hooks the server's components call.
// All implementations must be safe to call on a nil *NoopRecorder.
type Recorder interface {
	IncDiagnosticsPublish(trigger string)
	IncRebuild(kind string)
	ObserveRequestDuration(method string, d time.Duration)
	SetOpenDocuments(n int)
}

// NoopRecorder discards every observation; it is the default when no
// metrics address is configured.
type NoopRecorder struct{}

func (NoopRecorder) IncDiagnosticsPublish(string)            {}
func (NoopRecorder) IncRebuild(string)                       {}
func (NoopRecorder) ObserveRequestDuration(string, time.Duration) {}
func (NoopRecorder) SetOpenDocuments(int)                    {}

// PrometheusRecorder implements Recorder on top of a prometheus.Registry.
type PrometheusRecorder struct {
	diagnosticsPublishes *prom.CounterVec
	rebuilds             *prom.CounterVec
	requestDuration      *prom.HistogramVec
	openDocuments        prom.Gauge
}

// NewPrometheusRecorder constructs and registers the server's metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		diagnosticsPublishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdbase_lsp",
			Name:      "diagnostics_publishes_total",
			Help:      "Diagnostics publishes by trigger (open, save, debounce, collection)",
		}, []string{"trigger"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdbase_lsp",
			Name:      "index_rebuilds_total",
			Help:      "File index rebuilds by kind (full, incremental)",
		}, []string{"kind"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mdbase_lsp",
			Name:      "request_duration_seconds",
			Help:      "LSP request handler duration by method",
			Buckets:   prom.DefBuckets,
		}, []string{"method"}),
		openDocuments: prom.NewGauge(prom.GaugeOpts{
			Namespace: "mdbase_lsp",
			Name:      "open_documents",
			Help:      "Number of documents currently open in the document store",
		}),
	}
	reg.MustRegister(pr.diagnosticsPublishes, pr.rebuilds, pr.requestDuration, pr.openDocuments)
	return pr
}

func (pr *PrometheusRecorder) IncDiagnosticsPublish(trigger string) {
	pr.diagnosticsPublishes.WithLabelValues(trigger).Inc()
}

func (pr *PrometheusRecorder) IncRebuild(kind string) {
	pr.rebuilds.WithLabelValues(kind).Inc()
}

func (pr *PrometheusRecorder) ObserveRequestDuration(method string, d time.Duration) {
	pr.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) SetOpenDocuments(n int) {
	pr.openDocuments.Set(float64(n))
}

// ServeHTTP starts a blocking HTTP server exposing reg at /metrics on addr.
// Callers run it in its own goroutine; it returns when the listener fails
// or the process exits.
func ServeHTTP(addr string, reg *prom.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return server.ListenAndServe()
}
