package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes used as the "outcome" label
const (
	OutcomeDone      = "done"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
)

// LabelMetrics holds the Prometheus collectors of the label pipeline.
// A nil *LabelMetrics is valid and records nothing.
type LabelMetrics struct {
	registry *prometheus.Registry

	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	labelsTotal      *prometheus.CounterVec
	pagesTotal       *prometheus.CounterVec
	barcodeFallbacks *prometheus.CounterVec
	busy             prometheus.Gauge
}

// NewLabelMetrics creates the collectors on a private registry so tests and
// multiple instances never collide with the default one
func NewLabelMetrics() *LabelMetrics {
	m := &LabelMetrics{registry: prometheus.NewRegistry()}

	m.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labels",
		Name:      "jobs_total",
		Help:      "Label jobs by delivery path and outcome.",
	}, []string{"path", "outcome"})

	m.jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "labels",
		Name:      "job_duration_seconds",
		Help:      "Wall time of finished label jobs.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"path"})

	m.labelsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labels",
		Name:      "labels_rendered_total",
		Help:      "Labels laid out, by printer family.",
	}, []string{"family"})

	m.pagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labels",
		Name:      "pdf_pages_total",
		Help:      "PDF pages by rasterization result.",
	}, []string{"result"})

	m.barcodeFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labels",
		Name:      "barcode_fallbacks_total",
		Help:      "Barcodes redrawn as CODE128 or replaced by a placeholder.",
	}, []string{"kind"})

	m.busy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "labels",
		Name:      "assembler_busy",
		Help:      "1 while a label job is running.",
	})

	m.registry.MustRegister(
		m.jobsTotal, m.jobDuration, m.labelsTotal, m.pagesTotal, m.barcodeFallbacks, m.busy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveJob records a finished or rejected job
func (m *LabelMetrics) ObserveJob(path, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(path, outcome).Inc()
	if outcome != OutcomeRejected {
		m.jobDuration.WithLabelValues(path).Observe(elapsed.Seconds())
	}
}

// AddLabels counts laid out labels for a family
func (m *LabelMetrics) AddLabels(family string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.labelsTotal.WithLabelValues(family).Add(float64(n))
}

// PageRasterized counts one PDF page, ok or skipped
func (m *LabelMetrics) PageRasterized(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "skipped"
	}
	m.pagesTotal.WithLabelValues(result).Inc()
}

// BarcodeFallback counts a CODE128 retry ("code128") or a placeholder ("placeholder")
func (m *LabelMetrics) BarcodeFallback(kind string) {
	if m == nil {
		return
	}
	m.barcodeFallbacks.WithLabelValues(kind).Inc()
}

// SetBusy reflects the assembler's busy flag
func (m *LabelMetrics) SetBusy(busy bool) {
	if m == nil {
		return
	}
	if busy {
		m.busy.Set(1)
	} else {
		m.busy.Set(0)
	}
}

// Registry exposes the private registry
func (m *LabelMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *LabelMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
