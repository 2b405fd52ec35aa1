package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	OCRPagesTotal      *prometheus.CounterVec

	// Completion metrics
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec

	// Run metrics
	RunsTotal  *prometheus.CounterVec
	QueueDepth prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses a fresh registry,
// which keeps tests and multiple processors from colliding on the default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiology_extractions_total",
				Help: "Text extractions by method (pdf-text, pdf-ocr, failed)",
			},
			[]string{"method"},
		),

		ExtractionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "radiology_extraction_duration_seconds",
				Help:    "Text extraction time distribution",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),

		OCRPagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiology_ocr_pages_total",
				Help: "OCR pages by result (recognized, failed, skipped)",
			},
			[]string{"result"},
		),

		CompletionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiology_completions_total",
				Help: "Completion round trips by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		CompletionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "radiology_completion_duration_seconds",
				Help:    "Completion round trip time distribution",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"operation"},
		),

		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radiology_runs_total",
				Help: "Finished pipeline runs by final status",
			},
			[]string{"status"},
		),

		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "radiology_queue_depth",
				Help: "Files waiting in the processing queue",
			},
		),

		gatherer: reg,
	}
}

// RecordExtraction counts one extraction; method is "failed" when the file was unreadable.
func (m *Metrics) RecordExtraction(method string, ocrPages, failedPages, skippedPages int, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(method).Inc()
	m.ExtractionDuration.Observe(d.Seconds())
	if ocrPages > 0 {
		m.OCRPagesTotal.WithLabelValues("recognized").Add(float64(ocrPages))
	}
	if failedPages > 0 {
		m.OCRPagesTotal.WithLabelValues("failed").Add(float64(failedPages))
	}
	if skippedPages > 0 {
		m.OCRPagesTotal.WithLabelValues("skipped").Add(float64(skippedPages))
	}
}

func (m *Metrics) RecordCompletion(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(operation, CompletionOutcome(err)).Inc()
	m.CompletionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// CompletionOutcome maps a completion error to a low-cardinality label.
func CompletionOutcome(err error) string {
	var up *llm.UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrMissingCredentials):
		return "credentials"
	case errors.As(err, &up):
		return "upstream"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

// Handler exposes the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentCompletions wraps a CompletionClient with round-trip metrics.
func InstrumentCompletions(next llm.CompletionClient, m *Metrics) llm.CompletionClient {
	if m == nil {
		return next
	}
	return &instrumentedClient{next: next, m: m}
}

type instrumentedClient struct {
	next llm.CompletionClient
	m    *Metrics
}

func (c *instrumentedClient) CompleteJSON(ctx context.Context, req llm.CompletionRequest) ([]byte, error) {
	start := time.Now()
	out, err := c.next.CompleteJSON(ctx, req)
	c.m.RecordCompletion(req.Operation, err, time.Since(start))
	return out, err
}
