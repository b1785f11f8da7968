// Prometheus metrics for engine observability, served at /metrics while the
// run command is active.
package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_orders_total",
			Help: "Orders successfully submitted",
		},
		[]string{"side", "class"},
	)

	mtxOrderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_order_failures_total",
			Help: "Order attempts that did not reach the broker or were rejected",
		},
		[]string{"kind"},
	)

	mtxExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_exits_total",
			Help: "Positions closed, split by reason",
		},
		[]string{"reason"},
	)

	mtxCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_cycles_total",
			Help: "Control loop cycles by outcome",
		},
		[]string{"result"}, // ok|error|risk_stop
	)

	mtxEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_equity_usd",
			Help: "Broker-reported equity snapshot",
		},
	)

	mtxExposure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_gross_exposure_ratio",
			Help: "Gross exposure as a multiple of equity",
		},
	)

	mtxReserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_reserved_cash_usd",
			Help: "Cash reserved for in-flight orders",
		},
	)

	mtxRiskPerTrade = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_risk_per_trade",
			Help: "Current auto-tuned risk-per-trade fraction",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxOrders, mtxOrderFailures, mtxExits, mtxCycles,
		mtxEquity, mtxExposure, mtxReserved, mtxRiskPerTrade,
	)
}
