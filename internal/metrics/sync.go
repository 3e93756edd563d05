// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StaleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_stale_results_discarded_total",
		Help: "Total number of asynchronous results discarded because their context was superseded",
	}, []string{"scope"})

	notificationsUnread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "staysync_notifications_unread",
		Help: "Last reconciled unread notification count",
	})

	NotificationRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_notification_refreshes_total",
		Help: "Total number of unread count refreshes by trigger and result",
	}, []string{"trigger", "result"})

	MarkReadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staysync_notifications_mark_read_failures_total",
		Help: "Total number of failed mark-read calls",
	})
)

// IncStaleResult records a discarded stale result for the given scope.
func IncStaleResult(scope string) {
	if scope == "" {
		scope = "unknown"
	}
	StaleResultsTotal.WithLabelValues(scope).Inc()
}

// SetNotificationsUnread publishes the reconciled unread count.
func SetNotificationsUnread(n int) {
	notificationsUnread.Set(float64(n))
}

// IncNotificationRefresh records an unread count refresh outcome.
func IncNotificationRefresh(trigger, result string) {
	NotificationRefreshesTotal.WithLabelValues(trigger, result).Inc()
}

// IncMarkReadFailure records a failed mark-read call.
func IncMarkReadFailure() {
	MarkReadFailuresTotal.Inc()
}
