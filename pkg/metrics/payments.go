package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics tracks applied and declined payments by method.
type PaymentMetrics struct {
	applied  *prometheus.CounterVec
	declined *prometheus.CounterVec
	amount   *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_applied_total",
		Help:      "Payments committed against orders.",
	}, []string{"method", "kind"})
	declined := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_declined_total",
		Help:      "Payments rejected by credential checks or the gateway.",
	}, []string{"method"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_amount_cents_total",
		Help:      "Sum of committed payment amounts in minor units.",
	}, []string{"currency"})
	reg.MustRegister(applied, declined, amount)
	return &PaymentMetrics{applied: applied, declined: declined, amount: amount}
}

func (m *PaymentMetrics) ObserveApplied(method, kind, currency string, cents int64) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(method), normalizeLabel(kind)).Inc()
	if cents > 0 {
		m.amount.WithLabelValues(normalizeLabel(currency)).Add(float64(cents))
	}
}

func (m *PaymentMetrics) IncDeclined(method string) {
	if m == nil || m.declined == nil {
		return
	}
	m.declined.WithLabelValues(normalizeLabel(method)).Inc()
}
