package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	// Workflow outcomes, labelled by operation and apperr kind ("ok" on success).
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "places_operations_total", Help: "Place and user workflow outcomes"},
		[]string{"op", "result"},
	)
	GeocodeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocoder_request_duration_seconds",
			Help:    "Geocoder round-trip seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	TxAborted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_transactions_aborted_total", Help: "Aborted multi-document transactions"},
		[]string{"op"},
	)
)

func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(RequestsTotal, ReqDuration, InFlight, Operations, GeocodeDuration, TxAborted)
}
