package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		positionsOpenedTotal,
		positionsClosedTotal,
		realizedProfitTotal,
	)
}

var (
	positionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "positions_opened_total",
			Help: "Trade lots opened, by ticker.",
		},
		[]string{"ticker"},
	)

	positionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "positions_closed_total",
			Help: "Trade lots closed, by outcome (win/loss/flat).",
		},
		[]string{"outcome"},
	)

	realizedProfitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realized_profit_total",
			Help: "Sum of realized profit across all closed lots.",
		},
	)
)

func IncPositionOpened(ticker string) {
	positionsOpenedTotal.WithLabelValues(ticker).Inc()
}

func IncPositionClosed(ticker string, profit float64) {
	outcome := "flat"
	switch {
	case profit > 0:
		outcome = "win"
	case profit < 0:
		outcome = "loss"
	}
	positionsClosedTotal.WithLabelValues(outcome).Inc()
	realizedProfitTotal.Add(profit)
}
