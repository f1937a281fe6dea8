package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SearchMetrics tracks post search traffic per backend
type SearchMetrics struct {
	QueriesTotal  prometheus.CounterVec
	QueryDuration prometheus.HistogramVec
	Fallbacks     prometheus.Counter
	IndexErrors   prometheus.CounterVec
}

var (
	searchInstance *SearchMetrics
	searchOnce     sync.Once
)

// Search returns the search metrics, registering them on first use
func Search() *SearchMetrics {
	searchOnce.Do(func() {
		searchInstance = &SearchMetrics{
			QueriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Total number of search queries by backend",
				},
				[]string{"backend"},
			),
			QueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "search_query_duration_seconds",
					Help:    "Search query duration in seconds",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"backend"},
			),
			Fallbacks: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "search_fallbacks_total",
					Help: "Queries served by the database after an Elasticsearch failure",
				},
			),
			IndexErrors: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_index_errors_total",
					Help: "Failed index operations",
				},
				[]string{"operation"},
			),
		}
	})
	return searchInstance
}
