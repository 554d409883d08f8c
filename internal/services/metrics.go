package services

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcomes.
const (
	outcomeCreated     = "created"
	outcomeDuplicate   = "duplicate"
	outcomeDeleted     = "deleted"
	outcomeSkippedSelf = "skipped_self"
	outcomeError       = "error"
)

var (
	// dispatched counts Dispatcher evaluations by event type and outcome.
	dispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification rule evaluations by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	// queueOverflow counts emissions that had to wait for a full shard.
	queueOverflow = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_queue_overflow_total",
		Help: "Events whose emitter waited because the recipient's dispatch shard was full.",
	})
)

func init() {
	prometheus.MustRegister(dispatched, queueOverflow)
}
