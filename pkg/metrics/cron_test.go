package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsExportsSweepOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)

	metrics.ObserveDuration("stuck-generation-sweep", 250*time.Millisecond)
	metrics.IncSuccess("stuck-generation-sweep")
	metrics.IncFailure("pending-media-cleanup")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	got, err := fetchCounterValue(mfs, "soundsmith_cron_job_success_total", "job", "stuck-generation-sweep")
	if err != nil {
		t.Fatalf("fetch success: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	got, err = fetchCounterValue(mfs, "soundsmith_cron_job_failure_total", "job", "pending-media-cleanup")
	if err != nil {
		t.Fatalf("fetch failure: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	sum, err := fetchHistogramSum(mfs, "soundsmith_cron_job_duration_seconds", "job", "stuck-generation-sweep")
	if err != nil {
		t.Fatalf("fetch duration: %v", err)
	}
	if sum <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", sum)
	}
}

func TestCronJobMetricsNilRegistererIsNoOp(t *testing.T) {
	metrics := NewCronJobMetrics(nil)
	metrics.ObserveDuration("usage-reset", time.Second)
	metrics.IncSuccess("usage-reset")
	metrics.IncFailure("usage-reset")
}

func TestCronJobMetricsLabelsEmptyJobAsUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.IncSuccess("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if _, err := fetchCounterValue(mfs, "soundsmith_cron_job_success_total", "job", "unknown"); err != nil {
		t.Fatalf("fetch unknown label: %v", err)
	}
}
