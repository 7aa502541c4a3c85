package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scalper_cycles_total",
			Help: "Total number of completed scan cycles.",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scalper_cycle_duration_seconds",
			Help:    "Wall time of one scan cycle.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_signals_total",
			Help: "Entry signals detected (by pair and side).",
		},
		[]string{"pair", "side"},
	)

	PositionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_positions_opened_total",
			Help: "Simulated positions opened (by pair and side).",
		},
		[]string{"pair", "side"},
	)

	PositionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_positions_closed_total",
			Help: "Simulated positions closed (by pair and exit state).",
		},
		[]string{"pair", "state"},
	)

	StopLossAdjusted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_stop_loss_adjusted_total",
			Help: "Breakeven stop-loss moves (by pair).",
		},
		[]string{"pair"},
	)

	PairErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_pair_errors_total",
			Help: "Per-pair failures inside a cycle (by pair and error kind).",
		},
		[]string{"pair", "kind"},
	)

	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scalper_open_positions",
			Help: "Open simulated positions seen at the start of the last cycle.",
		},
	)

	RealizedProfit = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_realized_profit_usdt",
			Help: "Sum of realized profit of closed positions, split by sign.",
		},
		[]string{"sign"},
	)

	ExchangeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scalper_exchange_request_duration_seconds",
			Help:    "Latency of market data requests (by operation).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleDuration,
		SignalsTotal,
		PositionsOpened,
		PositionsClosed,
		StopLossAdjusted,
		PairErrors,
		OpenPositions,
		RealizedProfit,
		ExchangeRequestDuration,
	)
}

// ObserveProfit records a realized profit. Counters only grow, so losses go
// to their own series as an absolute value.
func ObserveProfit(profit float64) {
	if profit >= 0 {
		RealizedProfit.WithLabelValues("gain").Add(profit)
		return
	}
	RealizedProfit.WithLabelValues("loss").Add(-profit)
}
