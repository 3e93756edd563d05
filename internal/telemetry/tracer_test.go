// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProvider_DisabledInstallsNoop(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "staysync"})
	require.NoError(t, err)
	require.Nil(t, provider.tp)

	_, span := Tracer("stream").Start(context.Background(), "stream.connect")
	require.False(t, span.IsRecording())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "staysync", ExporterType: "kafka"})
	require.EqualError(t, err, "unsupported exporter type: kafka (supported: grpc, http)")
}

func TestNewProvider_RecordsComponentSpans(t *testing.T) {
	rec := tracetest.NewInMemoryExporter()
	provider, err := NewProvider(context.Background(), Config{
		Enabled:        true,
		ServiceName:    "staysync",
		ServiceVersion: "v0.0.0-test",
		SamplingRate:   1,
		Exporter:       rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	ctx, parent := Tracer("notifications").Start(context.Background(), "notifications.refresh_unread")
	_, child := Tracer("notifications").Start(ctx, "notifications.fetch_page")
	child.End()
	parent.End()

	require.NoError(t, provider.Shutdown(context.Background()))

	spans := rec.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, "notifications.fetch_page", spans[0].Name)
	require.Equal(t, "staysync/notifications", spans[0].InstrumentationScope.Name)
	require.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		require.Contains(t, samplerFor(tt.rate).Description(), tt.want, "rate %v", tt.rate)
	}
}

func TestProvider_ShutdownWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, (&Provider{}).Shutdown(ctx))
}
