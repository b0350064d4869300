package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing Prometheus metrics.
var (
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "documents_indexed_total",
			Help:      "Documents submitted by bulk indexing",
		},
		[]string{"content_type", "status"}, // "ok" / "error"
	)

	RebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "indexsync",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full index rebuilds in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"outcome"},
	)

	RebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "rebuilds_total",
			Help:      "Total number of index rebuilds",
		},
		[]string{"outcome"}, // "ok" / "partial" / "error"
	)

	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "mutations_total",
			Help:      "Point writes and deletes propagated to the index",
		},
		[]string{"content_type", "op", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "indexsync",
			Name:      "search_duration_seconds",
			Help:      "Search plus projection duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"content_type"},
	)

	SearchDroppedHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "search_dropped_hits_total",
			Help:      "Search hits whose entity no longer exists in the store",
		},
		[]string{"content_type"},
	)

	ChangeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indexsync",
			Name:      "change_events_total",
			Help:      "Change notifications handled by the dispatcher",
		},
		[]string{"op", "status"},
	)
)

var indexingMetricsRegistered bool

// RegisterIndexingMetrics registers Prometheus indexing metrics. Must be called once from main.
func RegisterIndexingMetrics() {
	if indexingMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(RebuildsTotal)
	prometheus.MustRegister(MutationsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchDroppedHitsTotal)
	prometheus.MustRegister(ChangeEventsTotal)
	indexingMetricsRegistered = true
}

// Status returns the status label for an error.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
