package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "limitbook"

var (
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders accepted by the book.",
		},
		[]string{"side", "type"},
	)

	OrdersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before reaching the book.",
		},
		[]string{"reason"},
	)

	FillsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fills_total",
		Help:      "Maker orders consumed, partial consumptions included.",
	})

	FilledQuantityTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "filled_quantity_total",
		Help:      "Total matched quantity.",
	})

	MatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "match_duration_seconds",
		Help:      "Time spent inside the book per submit.",
		Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
	})

	BookLevels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_levels",
			Help:      "Distinct price levels resting per side.",
		},
		[]string{"side"},
	)

	SinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Journal/publisher failures, breaker rejections included.",
		},
		[]string{"sink"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per sink (0 closed, 1 half-open, 2 open).",
		},
		[]string{"sink"},
	)
)

var registerOnce sync.Once

// MustRegister registers every collector with the default registry. Safe to
// call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			OrdersTotal,
			OrdersRejectedTotal,
			FillsTotal,
			FilledQuantityTotal,
			MatchDuration,
			BookLevels,
			SinkErrorsTotal,
			BreakerState,
		)
	})
}
