package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts inventory movement and order outcomes.
type OrderMetrics struct {
	reserved   prometheus.Counter
	released   *prometheus.CounterVec
	outOfStock prometheus.Counter
	conflicts  *prometheus.CounterVec
	completed  prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer. A
// nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	reserved := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_reserved_total",
		Help:      "Ticket instances claimed by carts.",
	})
	released := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_released_total",
		Help:      "Ticket instances returned to inventory.",
	}, []string{"reason"})
	outOfStock := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_out_of_stock_total",
		Help:      "Reservation attempts rejected for insufficient inventory.",
	})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_concurrency_conflicts_total",
		Help:      "Order writes rejected by the optimistic lock.",
	}, []string{"op"})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_completed_total",
		Help:      "Orders that reached Paid.",
	})
	reg.MustRegister(reserved, released, outOfStock, conflicts, completed)
	return &OrderMetrics{
		reserved:   reserved,
		released:   released,
		outOfStock: outOfStock,
		conflicts:  conflicts,
		completed:  completed,
	}
}

func (m *OrderMetrics) AddReserved(n int) {
	if m == nil || m.reserved == nil || n <= 0 {
		return
	}
	m.reserved.Add(float64(n))
}

func (m *OrderMetrics) AddReleased(reason string, n int) {
	if m == nil || m.released == nil || n <= 0 {
		return
	}
	m.released.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}

func (m *OrderMetrics) IncOutOfStock() {
	if m == nil || m.outOfStock == nil {
		return
	}
	m.outOfStock.Inc()
}

func (m *OrderMetrics) IncConcurrencyConflict(op string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *OrderMetrics) IncCompleted() {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Inc()
}
