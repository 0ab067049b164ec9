package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		broadcastMessagesTotal,
		broadcastDuration,
		webhookRequestsTotal,
	)
}

var (
	broadcastMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_messages_total",
			Help:      "Broadcast sends by result (delivered/failed/skipped).",
		},
		[]string{"result"},
	)

	broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Wall time of one release broadcast.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Webhook calls by HTTP status code.",
		},
		[]string{"code"},
	)
)

// ObserveBroadcast records the per-recipient results of one broadcast.
func ObserveBroadcast(delivered, failed, skipped int, took time.Duration) {
	broadcastMessagesTotal.WithLabelValues("delivered").Add(float64(delivered))
	broadcastMessagesTotal.WithLabelValues("failed").Add(float64(failed))
	broadcastMessagesTotal.WithLabelValues("skipped").Add(float64(skipped))
	broadcastDuration.Observe(took.Seconds())
}

// IncWebhook counts one webhook response.
func IncWebhook(code int) {
	webhookRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}
