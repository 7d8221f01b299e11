package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	metrics.Observe("GET", "/api/v1/users/{userId}", 200, 10*time.Millisecond)
	metrics.Observe("GET", "/api/v1/users/{userId}", 404, 5*time.Millisecond)
	metrics.Observe("GET", "/api/v1/users/{userId}", 200, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "http_requests_total")
	if mf == nil {
		t.Fatalf("http_requests_total not exported")
	}

	var ok, notFound float64
	for _, metric := range mf.GetMetric() {
		if !matchesLabel(metric.GetLabel(), "route", "/api/v1/users/{userId}") {
			continue
		}
		switch {
		case matchesLabel(metric.GetLabel(), "status", "200"):
			ok = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "status", "404"):
			notFound = metric.GetCounter().GetValue()
		}
	}
	if ok != 2 || notFound != 1 {
		t.Fatalf("expected 200=2 404=1, got 200=%f 404=%f", ok, notFound)
	}
}

func TestHTTPMetricsNilIsNoop(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("GET", "", 500, time.Millisecond)
}
