package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedStatus Sensor feed status (up/down)
	FeedStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodnet_feed_status",
			Help: "Status of the flood sensor feed (0 = last fetch failed, 1 = last fetch succeeded)",
		},
		[]string{"feed_url"},
	)

	FeedReadings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "floodnet_feed_readings",
		Help: "Number of heat-map readings mapped from the last successful feed fetch",
	}, []string{"feed_url"})
)

var (
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "floodnet_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests made by floodnet",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})

	HTTPCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floodnet_http_cache_results_total",
		Help: "Outgoing request cache lookups by result (hit, miss, store, error)",
	}, []string{"result"})
)

var (
	MalformedCoordinates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floodnet_malformed_coordinates_total",
		Help: "Requests rejected because a path segment was not a lat,lon pair",
	}, []string{"route"})

	ViewportRadius = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "floodnet_viewport_radius_km",
		Help:    "Covering radius of requested map viewports in km",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 500},
	})
)
