package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signal_desk"

var (
	once sync.Once

	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "source_fetches_total",
			Help:      "Adapter invocations by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cache_lookups_total",
			Help:      "Series cache lookups by result",
		},
		[]string{"result"},
	)

	SyntheticFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "synthetic_fallbacks_total",
			Help:      "Requests served by the synthetic series generator",
		},
		[]string{"symbol"},
	)

	SourceHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "source_healthy",
			Help:      "Result of the last health probe (1 healthy, 0 unhealthy)",
		},
		[]string{"source"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "signals_total",
			Help:      "Analysis results by symbol and direction",
		},
		[]string{"symbol", "signal"},
	)

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "analysis_seconds",
			Help:      "Latency of single-symbol analysis",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "commands_total",
			Help:      "Chat commands handled",
		},
		[]string{"command"},
	)
)

// Register adds all collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SourceFetches, CacheLookups, SyntheticFallbacks, SourceHealthy,
			Signals, AnalysisLatency, Commands,
		)
	})
}

// BoolGauge converts a health flag to a gauge value.
func BoolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
