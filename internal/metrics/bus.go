// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_bus_published_total",
		Help: "Total number of events published on the in-process bus by topic",
	}, []string{"topic"})

	BusHandlerPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_bus_handler_panics_total",
		Help: "Total number of recovered subscriber panics by topic",
	}, []string{"topic"})
)

// IncBusPublished records a publish for the given topic.
func IncBusPublished(topic string) {
	BusPublishedTotal.WithLabelValues(topicLabel(topic)).Inc()
}

// IncBusHandlerPanic records a recovered subscriber panic.
func IncBusHandlerPanic(topic string) {
	BusHandlerPanicsTotal.WithLabelValues(topicLabel(topic)).Inc()
}

func topicLabel(topic string) string {
	if topic == "" {
		return "unknown"
	}
	return topic
}
