// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "staysync_stream_state",
		Help: "Streaming connection state (connecting=1, open=1, closed=1; others 0)",
	}, []string{"state"})

	StreamReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_stream_reconnects_scheduled_total",
		Help: "Total number of scheduled stream reconnects by failure reason",
	}, []string{"reason"})

	streamBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "staysync_stream_backoff_seconds",
		Help:    "Delay before a scheduled stream reconnect",
		Buckets: []float64{1, 2, 4, 8, 16, 30},
	})

	StreamEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_stream_events_total",
		Help: "Total number of decoded stream events by kind",
	}, []string{"kind"})

	StreamDroppedFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staysync_stream_dropped_frames_total",
		Help: "Total number of stream frames dropped before publishing by reason",
	}, []string{"reason"})
)

var streamStates = []string{"connecting", "open", "closed"}

// SetStreamState records the active connection state.
func SetStreamState(state string) {
	for _, s := range streamStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		streamState.WithLabelValues(s).Set(value)
	}
}

// RecordStreamReconnect records a scheduled reconnect and its delay.
func RecordStreamReconnect(reason string, delaySeconds float64) {
	StreamReconnectsTotal.WithLabelValues(reason).Inc()
	streamBackoffSeconds.Observe(delaySeconds)
}

// IncStreamEvent records a decoded event.
func IncStreamEvent(kind string) {
	StreamEventsTotal.WithLabelValues(kind).Inc()
}

// IncStreamDroppedFrame records a frame that could not be turned into an event.
func IncStreamDroppedFrame(reason string) {
	StreamDroppedFramesTotal.WithLabelValues(reason).Inc()
}
