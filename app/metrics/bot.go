package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/releasebot/core/telegram/update"
)

func init() {
	register(
		updatesTotal,
		inboundDroppedTotal,
		rateLimitedTotal,
		adminDeniedTotal,
		usersRegisteredTotal,
		videosAddedTotal,
	)
}

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Handled events by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	inboundDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_dropped_total",
			Help:      "Events dropped before reaching a conversation, by reason.",
		},
		[]string{"reason"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Events dropped by the per-sender rate limit.",
		},
	)

	adminDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_denied_total",
			Help:      "Admin actions attempted by non-admins.",
		},
	)

	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Completed registrations.",
		},
	)

	videosAddedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_added_total",
			Help:      "Videos added through the admin flow.",
		},
	)
)

// Updates counts every event that reaches routing, labelled with its outcome.
func Updates(next update.Handler) update.Handler {
	return func(ctx context.Context, ev update.Event) error {
		err := next(ctx, ev)
		outcome := "ok"
		if err != nil {
			outcome = "fail"
		} else if o := update.CountersFrom(ctx).Outcome(); o != "" {
			outcome = o
		}
		updatesTotal.WithLabelValues(string(ev.Kind), norm(outcome)).Inc()
		return err
	}
}

// IncDropped counts an event rejected before routing.
func IncDropped(reason string) {
	inboundDroppedTotal.WithLabelValues(norm(reason)).Inc()
}

func IncRateLimited() {
	rateLimitedTotal.Inc()
}

func IncAdminDenied() {
	adminDeniedTotal.Inc()
}

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

func IncVideosAdded() {
	videosAddedTotal.Inc()
}
