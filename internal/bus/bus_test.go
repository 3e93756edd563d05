// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"sync"
	"testing"

	"github.com/ManuGH/staysync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestRegistry_DeliversInSubscriptionOrder(t *testing.T) {
	r := NewRegistry()
	var got []string

	r.Subscribe("x", func(any) { got = append(got, "a") })
	unsubB := r.Subscribe("x", func(any) { got = append(got, "b") })
	r.Subscribe("x", func(any) { got = append(got, "c") })

	r.Publish("x", nil)
	require.Equal(t, []string{"a", "b", "c"}, got)

	unsubB()
	got = nil
	r.Publish("x", nil)
	require.Equal(t, []string{"a", "c"}, got)
}

func TestRegistry_PublishOrderIsFIFO(t *testing.T) {
	r := NewRegistry()
	var got []any
	r.Subscribe("x", func(p any) { got = append(got, p) })

	for i := 0; i < 5; i++ {
		r.Publish("x", i)
	}
	require.Equal(t, []any{0, 1, 2, 3, 4}, got)
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	calls := 0
	unsub := r.Subscribe("x", func(any) { calls++ })

	unsub()
	require.NotPanics(t, unsub)
	r.Publish("x", nil)
	require.Zero(t, calls)
	require.Zero(t, r.SubscriberCount("x"))
}

func TestRegistry_UnsubscribeDuringPublishSkipsPendingHandler(t *testing.T) {
	r := NewRegistry()
	var unsubSecond func()
	secondCalls := 0

	r.Subscribe("x", func(any) { unsubSecond() })
	unsubSecond = r.Subscribe("x", func(any) { secondCalls++ })

	require.NotPanics(t, func() { r.Publish("x", nil) })
	require.Zero(t, secondCalls)
}

func TestRegistry_TopicsAreIsolated(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Subscribe(TopicNotificationsRefresh, func(any) { calls++ })

	r.Publish(TopicGuestSessionExpired, nil)
	require.Zero(t, calls)
	r.Publish(TopicNotificationsRefresh, nil)
	require.Equal(t, 1, calls)
}

func TestRegistry_PanickingHandlerDoesNotStopDelivery(t *testing.T) {
	r := NewRegistry()
	before := getCounterValue(t, metrics.BusHandlerPanicsTotal.WithLabelValues("panic-topic"))
	delivered := false

	r.Subscribe("panic-topic", func(any) { panic("boom") })
	r.Subscribe("panic-topic", func(any) { delivered = true })

	require.NotPanics(t, func() { r.Publish("panic-topic", nil) })
	require.True(t, delivered)
	after := getCounterValue(t, metrics.BusHandlerPanicsTotal.WithLabelValues("panic-topic"))
	require.Equal(t, before+1, after)
}

func TestRegistry_SubscribeFromHandler(t *testing.T) {
	r := NewRegistry()
	lateCalls := 0
	r.Subscribe("x", func(any) {
		r.Subscribe("x", func(any) { lateCalls++ })
	})

	r.Publish("x", nil)
	require.Zero(t, lateCalls, "a subscriber added mid-publish must not see that publish")
	r.Publish("x", nil)
	require.Equal(t, 1, lateCalls)
}

func TestRegistry_ConcurrentPublishAndSubscribe(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := r.Subscribe("x", func(any) {
				mu.Lock()
				total++
				mu.Unlock()
			})
			for j := 0; j < 50; j++ {
				r.Publish("x", j)
			}
			unsub()
		}()
	}
	wg.Wait()

	require.Zero(t, r.SubscriberCount("x"))
	require.Positive(t, total)
}

func TestNilHandlerIsIgnored(t *testing.T) {
	r := NewRegistry()
	unsub := r.Subscribe("x", nil)
	require.Zero(t, r.SubscriberCount("x"))
	require.NotPanics(t, unsub)
}

func TestDefaultRegistryIsShared(t *testing.T) {
	got := 0
	unsub := Subscribe("bus-test:default", func(p any) { got = p.(int) })
	defer unsub()

	Default().Publish("bus-test:default", 42)
	require.Equal(t, 42, got)
}
