package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		billingEventsTotal,
		paymentsRecordedTotal,
		paymentsRevenueTotal,
	)
}

var (
	billingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_total",
			Help: "Billing events by kind and outcome (applied/dropped/error).",
		},
		[]string{"kind", "outcome"},
	)

	paymentsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Payment ledger records appended.",
		},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_minor_units_total",
			Help: "Total value of recorded payments in minor units, by currency.",
		},
		[]string{"currency"},
	)
)

func IncBillingEvent(kind, outcome string) {
	billingEventsTotal.WithLabelValues(kind, outcome).Inc()
}

func IncPaymentRecorded(currency string, amountMinorUnits int64) {
	paymentsRecordedTotal.Inc()
	paymentsRevenueTotal.WithLabelValues(currency).Add(float64(amountMinorUnits))
}
