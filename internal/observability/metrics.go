// Package observability provides Prometheus metrics for dump sessions.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webinardump"

// Metrics holds all dump metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Segment metrics
	SegmentsDownloaded prometheus.Counter
	SegmentsSkipped    prometheus.Counter
	SegmentsFailed     prometheus.Counter
	SegmentsInFlight   prometheus.Gauge
	SegmentBytes       prometheus.Counter
	SegmentDuration    prometheus.Histogram

	// HTTP metrics
	HTTPRetries *prometheus.CounterVec

	// Pipeline metrics
	StageTransitions *prometheus.CounterVec
	DumpDuration     *prometheus.HistogramVec
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SegmentsDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "downloaded_total",
			Help:      "Total number of segments fetched and written",
		}),
		SegmentsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "skipped_total",
			Help:      "Total number of segments skipped because the ledger already had them",
		}),
		SegmentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "failed_total",
			Help:      "Total number of segments that failed after retries",
		}),
		SegmentsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "in_flight",
			Help:      "Number of segment downloads currently running",
		}),
		SegmentBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "bytes_total",
			Help:      "Total segment bytes written to disk",
		}),
		SegmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "segments",
			Name:      "duration_seconds",
			Help:      "Histogram of segment download duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		HTTPRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Total number of retried requests by cause",
		}, []string{"cause"}),

		StageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Total number of pipeline stage entries",
		}, []string{"stage"}),
		DumpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Histogram of whole dump duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"result"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SegmentStarted records a segment download start.
func (m *Metrics) SegmentStarted() {
	if m == nil {
		return
	}
	m.SegmentsInFlight.Inc()
}

// SegmentDone records a finished segment download.
func (m *Metrics) SegmentDone(bytes int64, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.SegmentsInFlight.Dec()
	m.SegmentDuration.Observe(took.Seconds())
	if err != nil {
		m.SegmentsFailed.Inc()
		return
	}
	m.SegmentsDownloaded.Inc()
	m.SegmentBytes.Add(float64(bytes))
}

// SegmentSkipped records a segment the ledger already held.
func (m *Metrics) SegmentSkipped() {
	if m == nil {
		return
	}
	m.SegmentsSkipped.Inc()
}

// Retry records a retried request.
func (m *Metrics) Retry(cause string) {
	if m == nil {
		return
	}
	m.HTTPRetries.WithLabelValues(cause).Inc()
}

// Stage records a pipeline stage entry.
func (m *Metrics) Stage(stage string) {
	if m == nil {
		return
	}
	m.StageTransitions.WithLabelValues(stage).Inc()
}

// DumpFinished records a whole dump duration.
func (m *Metrics) DumpFinished(took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.DumpDuration.WithLabelValues(result).Observe(took.Seconds())
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, log *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.InfoContext(ctx, "serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "metrics server", slog.Any("error", err))
		}
	}()
}
