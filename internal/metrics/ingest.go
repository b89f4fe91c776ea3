// Package metrics holds the Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics counts per-file outcomes and times each pipeline stage.
// A nil *IngestMetrics is valid and records nothing.
type IngestMetrics struct {
	outcomes      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	batchSize     prometheus.Histogram
}

// NewIngestMetrics creates the collectors and registers them on reg.
func NewIngestMetrics(reg prometheus.Registerer) (*IngestMetrics, error) {
	m := &IngestMetrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pdf_ingest_outcomes_total",
				Help: "Uploaded files by terminal ingestion status.",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pdf_ingest_stage_duration_seconds",
				Help:    "Duration of each ingestion stage per file.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage", "result"},
		),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdf_ingest_batch_files",
			Help:    "Number of files per ingestion batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	for _, c := range []prometheus.Collector{m.outcomes, m.stageDuration, m.batchSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOutcome counts one finished file-task.
func (m *IngestMetrics) ObserveOutcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage took and whether it succeeded.
func (m *IngestMetrics) ObserveStage(stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.stageDuration.WithLabelValues(stage, result).Observe(time.Since(start).Seconds())
}

// ObserveBatch records the size of a submitted batch.
func (m *IngestMetrics) ObserveBatch(files int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(files))
}
