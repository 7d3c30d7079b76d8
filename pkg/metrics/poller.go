package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records the lifecycle of provider job polling loops.
type PollerMetrics struct {
	duration  *prometheus.HistogramVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	timedOut  *prometheus.CounterVec
	attempts  *prometheus.HistogramVec
}

// NewPollerMetrics registers the polling metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soundsmith",
		Subsystem: "poller",
		Name:      "poll_duration_seconds",
		Help:      "Wall time spent polling a provider job until it resolved.",
		Buckets:   []float64{1, 5, 15, 30, 60, 90, 120, 180},
	}, []string{"kind"})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundsmith",
		Subsystem: "poller",
		Name:      "poll_completed_total",
		Help:      "Provider jobs that reached the completed state.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundsmith",
		Subsystem: "poller",
		Name:      "poll_failed_total",
		Help:      "Provider jobs that reached the failed state.",
	}, []string{"kind"})
	timedOut := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundsmith",
		Subsystem: "poller",
		Name:      "poll_timed_out_total",
		Help:      "Polling loops abandoned after the attempt budget ran out.",
	}, []string{"kind"})
	attempts := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soundsmith",
		Subsystem: "poller",
		Name:      "poll_attempts",
		Help:      "Status fetches issued per polling loop.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30},
	}, []string{"kind"})
	reg.MustRegister(duration, completed, failed, timedOut, attempts)
	return &PollerMetrics{
		duration:  duration,
		completed: completed,
		failed:    failed,
		timedOut:  timedOut,
		attempts:  attempts,
	}
}

// ObservePoll records the outcome of one finished polling loop.
func (p *PollerMetrics) ObservePoll(kind string, duration time.Duration, attempts int) {
	if p == nil || p.duration == nil {
		return
	}
	label := normalizeLabel(kind)
	p.duration.WithLabelValues(label).Observe(duration.Seconds())
	p.attempts.WithLabelValues(label).Observe(float64(attempts))
}

// IncCompleted increments the completed counter for the job kind.
func (p *PollerMetrics) IncCompleted(kind string) {
	if p == nil || p.completed == nil {
		return
	}
	p.completed.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailed increments the failed counter for the job kind.
func (p *PollerMetrics) IncFailed(kind string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncTimedOut increments the timeout counter for the job kind.
func (p *PollerMetrics) IncTimedOut(kind string) {
	if p == nil || p.timedOut == nil {
		return
	}
	p.timedOut.WithLabelValues(normalizeLabel(kind)).Inc()
}
