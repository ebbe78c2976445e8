package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and reindex Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuesearch",
			Name:      "search_requests_total",
			Help:      "Total venue searches by serving path",
		},
		[]string{"path"}, // engine | fallback
	)

	EngineFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "venuesearch",
			Name:      "engine_fallbacks_total",
			Help:      "Searches that fell back to the relational path after an engine failure",
		},
	)

	ReindexJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuesearch",
			Name:      "reindex_jobs_total",
			Help:      "Reindex job outcomes",
		},
		[]string{"outcome"}, // succeeded | retried | failed
	)

	ReindexDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuesearch",
			Name:      "reindex_documents_total",
			Help:      "Documents processed by bulk reindex",
		},
		[]string{"status"}, // indexed | failed
	)
)

// RegisterSearchMetrics registers search/reindex metrics explicitly (no init()).
func RegisterSearchMetrics() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		EngineFallbacksTotal,
		ReindexJobsTotal,
		ReindexDocumentsTotal,
	)
}
