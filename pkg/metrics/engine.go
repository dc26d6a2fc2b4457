package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records cache and synchronization outcomes for the cart engine.
type EngineMetrics struct {
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheFallback prometheus.Counter
	syncSuccess   *prometheus.CounterVec
	syncFailure   *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_cache_hits_total",
		Help: "Stock availability lookups served from the cache.",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_cache_misses_total",
		Help: "Stock availability lookups that required a remote call.",
	})
	cacheFallback := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_cache_fallback_total",
		Help: "Stock availability lookups answered from the static fallback table.",
	})
	syncSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_success_total",
		Help: "Successful remote cart synchronizations.",
	}, []string{"operation"})
	syncFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_failure_total",
		Help: "Failed remote cart synchronizations.",
	}, []string{"operation"})
	reg.MustRegister(cacheHits, cacheMisses, cacheFallback, syncSuccess, syncFailure)
	return &EngineMetrics{
		cacheHits:     cacheHits,
		cacheMisses:   cacheMisses,
		cacheFallback: cacheFallback,
		syncSuccess:   syncSuccess,
		syncFailure:   syncFailure,
	}
}

// IncCacheHit counts a lookup served from an unexpired cache entry.
func (m *EngineMetrics) IncCacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// IncCacheMiss counts a lookup that went to the remote stock API.
func (m *EngineMetrics) IncCacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// IncCacheFallback counts a lookup answered from the static fallback table.
func (m *EngineMetrics) IncCacheFallback() {
	if m == nil || m.cacheFallback == nil {
		return
	}
	m.cacheFallback.Inc()
}

// IncSyncSuccess counts a successful remote synchronization for the named operation.
func (m *EngineMetrics) IncSyncSuccess(operation string) {
	if m == nil || m.syncSuccess == nil {
		return
	}
	m.syncSuccess.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncSyncFailure counts a failed remote synchronization for the named operation.
func (m *EngineMetrics) IncSyncFailure(operation string) {
	if m == nil || m.syncFailure == nil {
		return
	}
	m.syncFailure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
