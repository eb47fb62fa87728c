// Package metrics provides Prometheus metrics for magicgest.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magicgest_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "magicgest_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Scryfall API Metrics
	ScryfallRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magicgest_scryfall_requests_total",
			Help: "Total number of Scryfall API requests by endpoint and outcome",
		},
		[]string{"endpoint", "result"}, // result: "ok", "not_found", "error"
	)

	ScryfallRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "magicgest_scryfall_request_duration_seconds",
			Help:    "Scryfall API call latency, including rate limiter wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// Catalog Metrics
	CatalogUpsertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "magicgest_catalog_upserts_total",
			Help: "Total number of card records written to the catalog cache",
		},
	)

	// Price Metrics
	PricePointsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magicgest_price_points_recorded_total",
			Help: "Total number of price history points recorded",
		},
		[]string{"platform"},
	)

	PriceRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "magicgest_price_refresh_duration_seconds",
			Help:    "Time taken by one background price refresh run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	AlertsTriggeredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "magicgest_alerts_triggered_total",
			Help: "Total number of price alerts that fired",
		},
	)

	// Collection Metrics
	CollectionValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "magicgest_collection_value",
			Help: "Collection value at the last snapshot, by platform",
		},
		[]string{"platform"},
	)

	CollectionCardsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "magicgest_collection_cards_total",
			Help: "Total number of cards in collection at the last snapshot",
		},
	)

	SnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "magicgest_collection_snapshots_total",
			Help: "Total number of collection value snapshots taken",
		},
	)

	// Realtime Metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "magicgest_websocket_clients",
			Help: "Number of connected alert websocket clients",
		},
	)
)

// Middleware records request counts and latency. The route template is used
// as the path label to keep cardinality bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
