package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchJobMetrics records per-run counters for the submission batch jobs.
type BatchJobMetrics struct {
	duration  *prometheus.HistogramVec
	runs      *prometheus.CounterVec
	processed *prometheus.CounterVec
	accepted  *prometheus.CounterVec
	failed    *prometheus.CounterVec
	alerts    *prometheus.CounterVec
}

// NewBatchJobMetrics registers the batch job metrics on the provided registerer.
func NewBatchJobMetrics(reg prometheus.Registerer) *BatchJobMetrics {
	if reg == nil {
		return &BatchJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_run_duration_seconds",
		Help:    "Duration of batch runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_runs_total",
		Help: "Completed batch runs by outcome.",
	}, []string{"job", "status"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_processed",
		Help: "Items processed by batch runs.",
	}, []string{"job"})
	accepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_accepted",
		Help: "Items accepted by the remote service.",
	}, []string{"job"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_failed",
		Help: "Items that failed after all attempts.",
	}, []string{"job"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_alerts_raised",
		Help: "Failure-ratio alerts raised by batch runs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, processed, accepted, failed, alerts)
	return &BatchJobMetrics{
		duration:  duration,
		runs:      runs,
		processed: processed,
		accepted:  accepted,
		failed:    failed,
		alerts:    alerts,
	}
}

// IncSuccess counts one completed run.
func (b *BatchJobMetrics) IncSuccess(job string) {
	if b == nil || b.runs == nil {
		return
	}
	b.runs.WithLabelValues(normalizeLabel(job), "success").Inc()
}

// IncFailure counts one run that returned an error.
func (b *BatchJobMetrics) IncFailure(job string) {
	if b == nil || b.runs == nil {
		return
	}
	b.runs.WithLabelValues(normalizeLabel(job), "failure").Inc()
}

// ObserveDuration records the duration for the named job.
func (b *BatchJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// AddRun folds one run's counters into the exported totals.
func (b *BatchJobMetrics) AddRun(job string, processed, accepted, failed int) {
	if b == nil || b.processed == nil {
		return
	}
	label := normalizeLabel(job)
	b.processed.WithLabelValues(label).Add(float64(processed))
	b.accepted.WithLabelValues(label).Add(float64(accepted))
	b.failed.WithLabelValues(label).Add(float64(failed))
}

// IncAlert counts a raised failure-ratio alert.
func (b *BatchJobMetrics) IncAlert(job string) {
	if b == nil || b.alerts == nil {
		return
	}
	b.alerts.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
