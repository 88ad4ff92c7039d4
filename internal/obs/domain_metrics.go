package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// VoucherEvaluationsTotal counts evaluation outcomes by reason.
	VoucherEvaluationsTotal *prometheus.CounterVec
	// VoucherRedemptionsTotal counts settlement attempts at checkout.
	VoucherRedemptionsTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts placed orders.
	OrdersCreatedTotal prometheus.Counter
	// OrderGrandTotal records the distribution of order grand totals in VND.
	OrderGrandTotal prometheus.Histogram
	// CatalogCacheTotal counts catalog cache hits and misses.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		VoucherEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_evaluations_total",
			Help:      "Count of voucher evaluations by outcome reason.",
		}, []string{"reason"})
		VoucherRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_redemptions_total",
			Help:      "Count of voucher settlement attempts at checkout by result.",
		}, []string{"result"})
		OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders placed.",
		})
		OrderGrandTotal = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_grand_total_vnd",
			Help:      "Distribution of order grand totals in VND.",
			Buckets:   []float64{50_000, 100_000, 250_000, 500_000, 1_000_000, 2_500_000, 5_000_000},
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, VoucherEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, VoucherRedemptionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VoucherRedemptionsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderGrandTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderGrandTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
	})
}
