// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	ch      chan time.Time
	stopped bool
	fired   bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	c.fireLocked()
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.fireLocked()
}

func (c *fakeClock) fireLocked() {
	for _, t := range c.timers {
		if t.fired || t.stopped || t.at.After(c.now) {
			continue
		}
		t.fired = true
		t.ch <- c.now
	}
}

func (c *fakeClock) scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delays)
}

func (c *fakeClock) scheduledDelays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

func TestWatcher_FlipsAtBoundariesWithoutPolling(t *testing.T) {
	clock := newFakeClock(t0)
	w := Window{OpensAt: at(time.Second), ClosesAt: at(5 * time.Second)}

	changes := make(chan Result, 8)
	watcher := NewWatcher(clock, w, func(r Result) { changes <- r })

	done := make(chan error, 1)
	go func() { done <- watcher.Run(context.Background()) }()

	require.Equal(t, StateNotYetOpen, (<-changes).State)
	require.Eventually(t, func() bool { return clock.scheduled() == 1 }, time.Second, time.Millisecond)

	clock.Advance(time.Second)
	require.Equal(t, StateBookable, (<-changes).State)
	require.Eventually(t, func() bool { return clock.scheduled() == 2 }, time.Second, time.Millisecond)

	clock.Advance(4 * time.Second)
	require.Equal(t, StateClosed, (<-changes).State)

	require.NoError(t, <-done)
	require.Equal(t, []time.Duration{time.Second, 4 * time.Second}, clock.scheduledDelays())
	require.Equal(t, StateClosed, watcher.Current().State)
}

func TestWatcher_DistantBoundaryRechecksHourly(t *testing.T) {
	clock := newFakeClock(t0)
	w := Window{OpensAt: at(150 * time.Minute)}

	changes := make(chan Result, 8)
	watcher := NewWatcher(clock, w, func(r Result) { changes <- r })
	done := make(chan error, 1)
	go func() { done <- watcher.Run(context.Background()) }()

	require.Equal(t, StateNotYetOpen, (<-changes).State)

	for i := 1; i <= 2; i++ {
		require.Eventually(t, func() bool { return clock.scheduled() == i }, time.Second, time.Millisecond)
		clock.Advance(time.Hour)
	}
	require.Eventually(t, func() bool { return clock.scheduled() == 3 }, time.Second, time.Millisecond)
	require.Empty(t, changes, "intermediate re-checks must not report a change")

	clock.Advance(30 * time.Minute)
	require.Equal(t, StateBookable, (<-changes).State)
	require.NoError(t, <-done)
	require.Equal(t, []time.Duration{MaxWake, MaxWake, 30 * time.Minute}, clock.scheduledDelays())
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	clock := newFakeClock(t0)
	watcher := NewWatcher(clock, Window{OpensAt: at(time.Minute)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	require.Eventually(t, func() bool { return clock.scheduled() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, StateNotYetOpen, watcher.Current().State)
}

func TestWatcher_FinalStateReturnsImmediately(t *testing.T) {
	clock := newFakeClock(t0)
	var got []Result
	watcher := NewWatcher(clock, Window{FallbackBookable: true}, func(r Result) { got = append(got, r) })

	require.NoError(t, watcher.Run(context.Background()))
	require.Len(t, got, 1)
	require.Equal(t, StateBookable, got[0].State)
	require.Zero(t, clock.scheduled())
}
