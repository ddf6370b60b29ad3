// Package metrics exposes ledger counters to Prometheus.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts point movements, commissions and redemptions.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	pointsCredited     *prometheus.CounterVec
	pointsDebited      *prometheus.CounterVec
	lotsExpired        prometheus.Counter
	commissionsEmitted *prometheus.CounterVec
	commissionAmount   *prometheus.CounterVec
	redemptions        *prometheus.CounterVec
	ordersProcessed    *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide metrics, registering them on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			pointsCredited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_points_credited_total",
				Help: "Points credited to members by transaction kind.",
			}, []string{"kind"}),
			pointsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_points_debited_total",
				Help: "Points removed from members by transaction kind.",
			}, []string{"kind"}),
			lotsExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "loyalty_lots_expired_total",
				Help: "Point lots zeroed by the expiry check.",
			}),
			commissionsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_commissions_emitted_total",
				Help: "Commission records created by upline level.",
			}, []string{"level"}),
			commissionAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_commission_amount_total",
				Help: "Commission currency amount credited by upline level.",
			}, []string{"level"}),
			redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_redemptions_total",
				Help: "Reward redemption attempts by outcome.",
			}, []string{"outcome"}),
			ordersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "loyalty_orders_processed_total",
				Help: "Order completion events by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.pointsCredited,
			ledgerRegistry.pointsDebited,
			ledgerRegistry.lotsExpired,
			ledgerRegistry.commissionsEmitted,
			ledgerRegistry.commissionAmount,
			ledgerRegistry.redemptions,
			ledgerRegistry.ordersProcessed,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObservePointsCredited(kind string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsCredited.WithLabelValues(kind).Add(float64(points))
}

func (m *LedgerMetrics) ObservePointsDebited(kind string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsDebited.WithLabelValues(kind).Add(float64(points))
}

func (m *LedgerMetrics) ObserveLotExpired() {
	if m == nil {
		return
	}
	m.lotsExpired.Inc()
}

func (m *LedgerMetrics) ObserveCommission(level int, amount int64) {
	if m == nil {
		return
	}
	label := strconv.Itoa(level)
	m.commissionsEmitted.WithLabelValues(label).Inc()
	m.commissionAmount.WithLabelValues(label).Add(float64(amount))
}

func (m *LedgerMetrics) ObserveRedemption(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) ObserveOrder(result string) {
	if m == nil {
		return
	}
	m.ordersProcessed.WithLabelValues(result).Inc()
}
