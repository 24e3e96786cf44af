package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records checkout-engine activity for one terminal process.
type EngineMetrics struct {
	searchRequests  prometheus.Counter
	staleDropped    prometheus.Counter
	barcodeLookups  *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	checkoutResults *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	searchRequests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "search_requests_total",
		Help: "Catalog text searches issued after debounce.",
	})
	staleDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "search_stale_dropped_total",
		Help: "Search responses discarded because a newer query was issued.",
	})
	barcodeLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barcode_lookups_total",
		Help: "Barcode lookups by outcome.",
	}, []string{"outcome"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation.",
	}, []string{"op"})
	checkoutResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout submissions by result.",
	}, []string{"result"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of backend API calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})
	reg.MustRegister(searchRequests, staleDropped, barcodeLookups, cartMutations, checkoutResults, requestDuration)
	return &EngineMetrics{
		searchRequests:  searchRequests,
		staleDropped:    staleDropped,
		barcodeLookups:  barcodeLookups,
		cartMutations:   cartMutations,
		checkoutResults: checkoutResults,
		requestDuration: requestDuration,
	}
}

// IncSearchRequest counts one issued text search.
func (m *EngineMetrics) IncSearchRequest() {
	if m == nil || m.searchRequests == nil {
		return
	}
	m.searchRequests.Inc()
}

// IncStaleDropped counts one discarded stale search response.
func (m *EngineMetrics) IncStaleDropped() {
	if m == nil || m.staleDropped == nil {
		return
	}
	m.staleDropped.Inc()
}

// IncBarcodeLookup counts a barcode lookup with the given outcome.
func (m *EngineMetrics) IncBarcodeLookup(outcome string) {
	if m == nil || m.barcodeLookups == nil {
		return
	}
	m.barcodeLookups.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCartMutation counts a cart mutation for the named operation.
func (m *EngineMetrics) IncCartMutation(op string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCheckout counts a checkout attempt with the given result.
func (m *EngineMetrics) IncCheckout(result string) {
	if m == nil || m.checkoutResults == nil {
		return
	}
	m.checkoutResults.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveRequestDuration records the duration of a backend call.
func (m *EngineMetrics) ObserveRequestDuration(call string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(normalizeLabel(call)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
