package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep jobs finish in well under a second on a quiet database but can run
// for minutes when a backlog of stuck generations or stale uploads built up.
var cronDurationBuckets = []float64{0.05, 0.25, 1, 5, 15, 60, 300, 600}

// CronJobMetrics records outcomes for the maintenance sweeps: stuck
// generation timeouts, usage resets, pending media cleanup, and
// notification retention.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCronJobMetrics registers the sweep metrics on the provided registerer.
// A nil registerer yields a no-op collector, which the tests use.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soundsmith",
		Subsystem: "cron",
		Name:      "job_duration_seconds",
		Help:      "Wall time of one maintenance sweep run.",
		Buckets:   cronDurationBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundsmith",
		Subsystem: "cron",
		Name:      "job_success_total",
		Help:      "Maintenance sweep runs that completed.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundsmith",
		Subsystem: "cron",
		Name:      "job_failure_total",
		Help:      "Maintenance sweep runs that returned an error.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &CronJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the wall time of the named sweep.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess counts a completed run of the named sweep.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure counts a failed run of the named sweep.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
