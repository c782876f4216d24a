package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)

	m.OrderCreated(3)
	m.OrderCreated(2)
	m.CheckoutRejected("insufficient_stock")
	m.CheckoutRejected("")
	m.PaymentTransition("UNPAID", "PAID")
	m.StatusTransition("SHIPPED")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := fetchCounterValue(t, mfs, "storefront_orders_created_total", nil); got != 2 {
		t.Fatalf("expected 2 orders, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "storefront_stock_units_decremented_total", nil); got != 5 {
		t.Fatalf("expected 5 units, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "storefront_checkout_rejections_total", map[string]string{"reason": "insufficient_stock"}); got != 1 {
		t.Fatalf("expected 1 insufficient_stock rejection, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "storefront_checkout_rejections_total", map[string]string{"reason": "unknown"}); got != 1 {
		t.Fatalf("expected empty reason to map to unknown, got %f", got)
	}
	if got := fetchCounterValue(t, mfs, "storefront_payment_transitions_total", map[string]string{"from": "UNPAID", "to": "PAID"}); got != 1 {
		t.Fatalf("expected 1 payment transition, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *StoreMetrics
	m.OrderCreated(1)
	m.CheckoutRejected("x")
	NewStoreMetrics(nil).PaymentTransition("a", "b")

	var h *HTTPMetrics
	h.Observe("GET", "/", 200, time.Millisecond)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)
	h.Observe("POST", "/api/v1/checkout", 201, 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "storefront_http_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one histogram series")
	}
	metric := mf.GetMetric()[0]
	if !matchesLabels(metric.GetLabel(), map[string]string{"method": "POST", "route": "/api/v1/checkout", "status": "201"}) {
		t.Fatalf("unexpected labels %v", metric.GetLabel())
	}
	if metric.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one sample")
	}
}

func fetchCounterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("%s", fmt.Sprintf("metric %q missing labels %v", name, labels))
	return 0
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	for key, value := range want {
		found := false
		for _, pair := range pairs {
			if pair.GetName() == key && pair.GetValue() == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
