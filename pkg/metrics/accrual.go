package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	PathOrdered   = "ordered"
	PathDelivered = "delivered"
)

// AccrualMetrics tracks subscription jar accrual and payment outcomes.
type AccrualMetrics struct {
	jars          *prometheus.CounterVec
	capRejections *prometheus.CounterVec
	payments      *prometheus.CounterVec
}

// NewAccrualMetrics registers the accrual metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAccrualMetrics(reg prometheus.Registerer) *AccrualMetrics {
	if reg == nil {
		return &AccrualMetrics{}
	}
	jars := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_jars_total",
		Help:      "Jars accrued against subscriptions, by path.",
	}, []string{"path"})
	capRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_cap_rejections_total",
		Help:      "Requests rejected because the monthly jar cap was reached.",
	}, []string{"path"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Payment attempts by purpose and outcome.",
	}, []string{"purpose", "outcome"})
	reg.MustRegister(jars, capRejections, payments)
	return &AccrualMetrics{jars: jars, capRejections: capRejections, payments: payments}
}

func (m *AccrualMetrics) AddJars(path string, quantity int) {
	if m == nil || m.jars == nil || quantity <= 0 {
		return
	}
	m.jars.WithLabelValues(normalizeLabel(path)).Add(float64(quantity))
}

func (m *AccrualMetrics) IncCapRejection(path string) {
	if m == nil || m.capRejections == nil {
		return
	}
	m.capRejections.WithLabelValues(normalizeLabel(path)).Inc()
}

func (m *AccrualMetrics) IncPayment(purpose, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(purpose), normalizeLabel(outcome)).Inc()
}
