package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.Observe("order-expiry", 250*time.Millisecond, finished, nil)
	m.Observe("order-expiry", time.Second, finished, errors.New("db down"))
	m.Observe("", time.Millisecond, finished, nil)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("order-expiry", outcomeSuccess)); got != 1 {
		t.Fatalf("expected one success, got %f", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("order-expiry", outcomeFailure)); got != 1 {
		t.Fatalf("expected one failure, got %f", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("order-expiry")); got != float64(finished.Unix()) {
		t.Fatalf("unexpected last success %f", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("unknown", outcomeSuccess)); got != 1 {
		t.Fatalf("empty job name should map to unknown, got %f", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if sum, err := fetchHistogramSum(mfs, "iwanyu_cron_job_duration_seconds", "job", "order-expiry"); err != nil || sum != 1.25 {
		t.Fatalf("expected duration sum 1.25, got %f err=%v", sum, err)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.Observe("session-purge", time.Second, time.Now(), nil)
	if NewCronJobMetrics(nil) != nil {
		t.Fatal("nil registerer should yield nil metrics")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, metric := range familyMetrics(mfs, name) {
		if hasLabel(metric, label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("counter %q has no series with %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, metric := range familyMetrics(mfs, name) {
		if hasLabel(metric, label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q has no series with %s=%s", name, label, value)
}

func familyMetrics(mfs []*dto.MetricFamily, name string) []*dto.Metric {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name && pair.GetValue() == value {
			return true
		}
	}
	return false
}
