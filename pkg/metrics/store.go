package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// StoreMetrics records order and stock outcomes.
type StoreMetrics struct {
	ordersCreated      prometheus.Counter
	unitsReserved      prometheus.Counter
	checkoutRejections *prometheus.CounterVec
	paymentTransitions *prometheus.CounterVec
	statusTransitions  *prometheus.CounterVec
}

// NewStoreMetrics registers the storefront metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	m := &StoreMetrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed by checkout.",
		}),
		unitsReserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_decremented_total",
			Help:      "Units removed from stock by committed orders.",
		}),
		checkoutRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_rejections_total",
			Help:      "Checkouts rejected before commit, by reason.",
		}, []string{"reason"}),
		paymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Applied payment status changes.",
		}, []string{"from", "to"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Applied order status changes.",
		}, []string{"to"}),
	}
	reg.MustRegister(m.ordersCreated, m.unitsReserved, m.checkoutRejections, m.paymentTransitions, m.statusTransitions)
	return m
}

// OrderCreated counts a committed order and the units it removed from stock.
func (m *StoreMetrics) OrderCreated(units int) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
	if units > 0 {
		m.unitsReserved.Add(float64(units))
	}
}

// CheckoutRejected counts a checkout that rolled back.
func (m *StoreMetrics) CheckoutRejected(reason string) {
	if m == nil || m.checkoutRejections == nil {
		return
	}
	m.checkoutRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// PaymentTransition counts an applied payment status change.
func (m *StoreMetrics) PaymentTransition(from, to string) {
	if m == nil || m.paymentTransitions == nil {
		return
	}
	m.paymentTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// StatusTransition counts an applied order status change.
func (m *StoreMetrics) StatusTransition(to string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(normalizeLabel(to)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
