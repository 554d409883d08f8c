package realtime

import "github.com/prometheus/client_golang/prometheus"

// Delivery outcomes.
const (
	outcomeDelivered    = "delivered"
	outcomeOffline      = "offline"
	outcomeDropped      = "dropped"
	outcomePublished    = "published"
	outcomePublishError = "publish_error"
)

var (
	wsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Current number of admitted WebSocket connections.",
	})

	// wsAdmissions counts admission decisions by result
	// (admitted, unknown_user, unavailable).
	wsAdmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_admissions_total",
			Help: "WebSocket admission decisions.",
		},
		[]string{"result"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Live notification deliveries by message type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	layerFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_layer_fallbacks_total",
		Help: "Times delivery fell back from the Redis layer to the local hub.",
	})
)

func init() {
	prometheus.MustRegister(wsActive, wsAdmissions, deliveries, layerFallbacks)
}
