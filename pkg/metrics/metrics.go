package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	PeersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fedsearch_peers_total",
			Help: "Number of registered peers by health status",
		},
		[]string{"status"},
	)

	DatasetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fedsearch_datasets_total",
			Help: "Number of datasets in the local catalog",
		},
	)

	RecordsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fedsearch_records_total",
			Help: "Number of local records by entity",
		},
		[]string{"entity"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedsearch_api_requests_total",
			Help: "Total number of API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fedsearch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Federation metrics
	PeerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedsearch_peer_requests_total",
			Help: "Total number of outbound peer calls by peer and status",
		},
		[]string{"peer", "status"},
	)

	FederatedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fedsearch_federated_requests_total",
			Help: "Total number of origin requests by validity of the merged response",
		},
		[]string{"valid"},
	)

	HopRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fedsearch_hop_requests_total",
			Help: "Total number of federation hops answered locally",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(PeersTotal)
	prometheus.MustRegister(DatasetsTotal)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(PeerRequestsTotal)
	prometheus.MustRegister(FederatedRequestsTotal)
	prometheus.MustRegister(HopRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
