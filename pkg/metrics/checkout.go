package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks order placement and cart contention.
type CheckoutMetrics struct {
	ordersPlaced  prometheus.Counter
	failures      *prometheus.CounterVec
	cartConflicts *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on reg. A nil registerer
// yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "orders_placed_total",
		Help:      "Orders created by checkout.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "failures_total",
		Help:      "Checkout attempts rejected, by error code.",
	}, []string{"code"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cart",
		Name:      "version_conflicts_total",
		Help:      "Optimistic cart save conflicts, by operation.",
	}, []string{"operation"})
	reg.MustRegister(placed, failures, conflicts)
	return &CheckoutMetrics{
		ordersPlaced:  placed,
		failures:      failures,
		cartConflicts: conflicts,
	}
}

// IncOrderPlaced counts a committed order.
func (c *CheckoutMetrics) IncOrderPlaced() {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.Inc()
}

// IncFailure counts a rejected checkout by its error code.
func (c *CheckoutMetrics) IncFailure(code string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncCartConflict counts a lost optimistic save on a cart.
func (c *CheckoutMetrics) IncCartConflict(operation string) {
	if c == nil || c.cartConflicts == nil {
		return
	}
	c.cartConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}
