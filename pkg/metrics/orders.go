package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics records order lifecycle and settlement counters.
type OrderMetrics struct {
	created    prometheus.Counter
	cancelled  prometheus.Counter
	returns    prometheus.Counter
	callbacks  *prometheus.CounterVec
	orderTotal prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by members or admins.",
	})
	returns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_returns_requested_total",
		Help: "Return requests filed against delivered orders.",
	})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Gateway settlement callbacks by outcome.",
	}, []string{"outcome"})
	orderTotal := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Distribution of charged order totals.",
		Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 50000},
	})
	reg.MustRegister(created, cancelled, returns, callbacks, orderTotal)
	return &OrderMetrics{
		created:    created,
		cancelled:  cancelled,
		returns:    returns,
		callbacks:  callbacks,
		orderTotal: orderTotal,
	}
}

// IncCreated counts a created order and observes its charged total.
func (m *OrderMetrics) IncCreated(total decimal.Decimal) {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
	f, _ := total.Float64()
	m.orderTotal.Observe(f)
}

// IncCancelled counts a cancellation.
func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncReturnRequested counts a filed return request.
func (m *OrderMetrics) IncReturnRequested() {
	if m == nil || m.returns == nil {
		return
	}
	m.returns.Inc()
}

// IncCallback counts a settlement callback by outcome label.
func (m *OrderMetrics) IncCallback(outcome string) {
	if m == nil || m.callbacks == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.callbacks.WithLabelValues(outcome).Inc()
}
