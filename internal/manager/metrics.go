package manager

import "github.com/prometheus/client_golang/prometheus"

// Eviction reasons used as metric labels and log fields.
const (
	reasonManual   = "manual"
	reasonSwap     = "swap"
	reasonIdle     = "idle"
	reasonShutdown = "shutdown"
	reasonStale    = "stale"
)

var (
	slotLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "asrd",
			Subsystem: "slot",
			Name:      "loads_total",
			Help:      "Total model loads by result",
		},
		[]string{"result"},
	)

	slotEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "asrd",
			Subsystem: "slot",
			Name:      "evictions_total",
			Help:      "Total model evictions by reason",
		},
		[]string{"reason"},
	)

	slotCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "asrd",
			Subsystem: "slot",
			Name:      "cache_hits_total",
			Help:      "Acquires served by the already loaded model",
		},
	)

	slotLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "asrd",
			Subsystem: "slot",
			Name:      "load_duration_seconds",
			Help:      "Time spent materializing a model",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
	)

	slotLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "asrd",
			Subsystem: "slot",
			Name:      "loaded",
			Help:      "1 when a model occupies the GPU slot",
		},
	)
)

func init() {
	prometheus.MustRegister(slotLoadsTotal, slotEvictionsTotal, slotCacheHitsTotal, slotLoadDuration, slotLoaded)
}
