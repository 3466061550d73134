// Package metrics holds the Prometheus collectors for document store traffic.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Document store Prometheus metrics.
var (
	StoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articles",
			Name:      "store_requests_total",
			Help:      "Total number of document store requests",
		},
		[]string{"op", "status"}, // status: ok / invalid / error
	)

	StoreRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "articles",
			Name:      "store_request_duration_seconds",
			Help:      "Document store request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"},
	)

	StoreDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "articles",
			Name:      "store_documents_total",
			Help:      "Documents written or returned by the document store",
		},
		[]string{"op"},
	)
)

var registerStore sync.Once

// RegisterStoreMetrics registers the store collectors with the default registry. Safe to call more than once.
func RegisterStoreMetrics() {
	registerStore.Do(func() {
		prometheus.MustRegister(StoreRequestsTotal)
		prometheus.MustRegister(StoreRequestDuration)
		prometheus.MustRegister(StoreDocumentsTotal)
	})
}
