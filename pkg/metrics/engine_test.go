package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)
	metrics.IncCacheHit()
	metrics.IncCacheHit()
	metrics.IncCacheMiss()
	metrics.IncCacheFallback()
	metrics.IncSyncSuccess("refresh")
	metrics.IncSyncFailure("add_item")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := fetchCounter(t, mfs, "stock_cache_hits_total"); got != 2 {
		t.Fatalf("expected hits=2, got %f", got)
	}
	if got := fetchCounter(t, mfs, "stock_cache_misses_total"); got != 1 {
		t.Fatalf("expected misses=1, got %f", got)
	}
	if got := fetchCounter(t, mfs, "stock_cache_fallback_total"); got != 1 {
		t.Fatalf("expected fallback=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cart_sync_success_total", "operation", "refresh"); err != nil {
		t.Fatalf("fetch sync success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sync success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cart_sync_failure_total", "operation", "add_item"); err != nil {
		t.Fatalf("fetch sync failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sync failure=1, got %f", got)
	}
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var metrics *EngineMetrics
	metrics.IncCacheHit()
	metrics.IncSyncFailure("refresh")

	empty := NewEngineMetrics(nil)
	empty.IncCacheMiss()
	empty.IncSyncSuccess("remove")
}

func fetchCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
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
