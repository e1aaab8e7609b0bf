package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records delivery and cash-settlement activity.
type SettlementMetrics struct {
	deliveriesConfirmed *prometheus.CounterVec
	coinsCredited       prometheus.Counter
	depositsCreated     prometheus.Counter
	depositsResolved    *prometheus.CounterVec
	confirmDuration     prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	deliveriesConfirmed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_confirmed_total",
		Help: "Orders marked delivered, labeled by payment method.",
	}, []string{"payment_method"})
	coinsCredited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallet_coins_credited_total",
		Help: "Wallet coins credited through order rewards.",
	})
	depositsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deposit_requests_created_total",
		Help: "Cash deposit requests opened by delivery partners.",
	})
	depositsResolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deposit_requests_resolved_total",
		Help: "Deposit requests resolved by admins, labeled by decision.",
	}, []string{"decision"})
	confirmDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "delivery_confirm_duration_seconds",
		Help:    "Duration of the delivery confirmation transaction.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(deliveriesConfirmed, coinsCredited, depositsCreated, depositsResolved, confirmDuration)
	return &SettlementMetrics{
		deliveriesConfirmed: deliveriesConfirmed,
		coinsCredited:       coinsCredited,
		depositsCreated:     depositsCreated,
		depositsResolved:    depositsResolved,
		confirmDuration:     confirmDuration,
	}
}

// IncDeliveryConfirmed counts a confirmed delivery for the payment method.
func (m *SettlementMetrics) IncDeliveryConfirmed(paymentMethod string) {
	if m == nil || m.deliveriesConfirmed == nil {
		return
	}
	m.deliveriesConfirmed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// AddCoinsCredited counts coins credited by reward accrual.
func (m *SettlementMetrics) AddCoinsCredited(coins int) {
	if m == nil || m.coinsCredited == nil || coins <= 0 {
		return
	}
	m.coinsCredited.Add(float64(coins))
}

// IncDepositCreated counts a newly opened deposit request.
func (m *SettlementMetrics) IncDepositCreated() {
	if m == nil || m.depositsCreated == nil {
		return
	}
	m.depositsCreated.Inc()
}

// IncDepositResolved counts a resolved deposit request by decision.
func (m *SettlementMetrics) IncDepositResolved(decision string) {
	if m == nil || m.depositsResolved == nil {
		return
	}
	m.depositsResolved.WithLabelValues(normalizeLabel(decision)).Inc()
}

// ObserveConfirmDuration records how long the delivery transaction took.
func (m *SettlementMetrics) ObserveConfirmDuration(duration time.Duration) {
	if m == nil || m.confirmDuration == nil {
		return
	}
	m.confirmDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
