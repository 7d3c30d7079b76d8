package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPollerMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPollerMetrics(reg)

	metrics.ObservePoll("music", 9*time.Second, 3)
	metrics.IncCompleted("music")
	metrics.IncFailed("image")
	metrics.IncTimedOut("music")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "soundsmith_poller_poll_completed_total", "kind", "music"); err != nil {
		t.Fatalf("fetch completed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected completed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "soundsmith_poller_poll_failed_total", "kind", "image"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "soundsmith_poller_poll_timed_out_total", "kind", "music"); err != nil {
		t.Fatalf("fetch timed out: %v", err)
	} else if got != 1 {
		t.Fatalf("expected timed_out=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "soundsmith_poller_poll_attempts", "kind", "music"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 3 {
		t.Fatalf("expected attempts sum=3, got %f", got)
	}
}

func TestPollerMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewPollerMetrics(nil)
	metrics.ObservePoll("music", time.Second, 1)
	metrics.IncCompleted("music")
	metrics.IncFailed("music")
	metrics.IncTimedOut("music")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findByLabel(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findByLabel(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findByLabel(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("metric %s{%s=%q} not found", name, label, value)
}
