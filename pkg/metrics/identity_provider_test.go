package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestIdentityProviderMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewIdentityProviderMetrics(reg)
	op := "service_token"
	metrics.ObserveDuration(op, 250*time.Millisecond)
	metrics.IncSuccess(op)
	metrics.IncFailure(op)
	metrics.IncFailure(op)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "identity_provider_requests_total", op, "success"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "identity_provider_requests_total", op, "failure"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failure=2, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "identity_provider_request_duration_seconds", op); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestIdentityProviderMetricsTrack(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewIdentityProviderMetrics(reg)

	metrics.Track("create_user", time.Now().Add(-time.Second), nil)
	metrics.Track("", time.Now(), errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "identity_provider_requests_total", "create_user", "success"); err != nil || got != 1 {
		t.Fatalf("expected create_user success=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "identity_provider_requests_total", "unknown", "failure"); err != nil || got != 1 {
		t.Fatalf("expected unknown failure=1, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	metrics := NewIdentityProviderMetrics(nil)
	metrics.Track("service_token", time.Now(), nil)

	var nilMetrics *IdentityProviderMetrics
	nilMetrics.Track("service_token", time.Now(), errors.New("boom"))
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, op, outcome string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "operation", op) && matchesLabel(metric.GetLabel(), "outcome", outcome) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing operation=%s outcome=%s", name, op, outcome)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, op string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "operation", op) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing operation=%s", name, op)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
