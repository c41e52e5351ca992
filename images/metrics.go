package images

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch stage.
type Metrics struct {
	Registry        *prometheus.Registry
	DownloadsTotal  *prometheus.CounterVec
	ProbesTotal     *prometheus.CounterVec
	ReusedTotal     prometheus.Counter
	RequestDuration prometheus.Histogram
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	downloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_image_downloads_total",
			Help: "Image download attempts by outcome.",
		},
		[]string{"outcome"},
	)
	probes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_image_probes_total",
			Help: "Content-type header probes by outcome.",
		},
		[]string{"outcome"},
	)
	reused := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "import_image_reused_total",
			Help: "Images satisfied from an already-present local file.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "import_image_request_duration_seconds",
			Help:    "HTTP request latency for image probes and downloads.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(downloads, probes, reused, duration)

	return &Metrics{
		Registry:        registry,
		DownloadsTotal:  downloads,
		ProbesTotal:     probes,
		ReusedTotal:     reused,
		RequestDuration: duration,
	}
}

// IncDownload increments the downloads counter for an outcome label.
func (m *Metrics) IncDownload(outcome string) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(outcome).Inc()
}

// IncProbe increments the probes counter for an outcome label.
func (m *Metrics) IncProbe(outcome string) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(outcome).Inc()
}

// IncReused increments the reused counter.
func (m *Metrics) IncReused() {
	if m == nil {
		return
	}
	m.ReusedTotal.Inc()
}

// ObserveDuration records one HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}
