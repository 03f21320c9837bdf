package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultChanged = "changed"
	resultNoop    = "noop"
	resultError   = "error"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gomarket",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart store operations by result (changed, noop, error).",
		},
		[]string{"op", "result"},
	)

	lineItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gomarket",
			Subsystem: "cart",
			Name:      "line_items",
			Help:      "Number of distinct line items in the cart.",
		},
	)

	persistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gomarket",
			Subsystem: "cart",
			Name:      "persist_duration_seconds",
			Help:      "Time spent writing the cart to storage.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)
