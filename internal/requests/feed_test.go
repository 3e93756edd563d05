// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/domain/request/model"
	"github.com/ManuGH/staysync/internal/stream"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type call struct {
	tenantID string
	page     int
}

type fakeLister struct {
	mu    sync.Mutex
	data  map[string][]Request
	gates map[string]chan struct{}
	calls []call
}

func newFakeLister() *fakeLister {
	return &fakeLister{data: map[string][]Request{}, gates: map[string]chan struct{}{}}
}

func (l *fakeLister) ListRequests(ctx context.Context, tenantID string, page int) (Page, error) {
	l.mu.Lock()
	l.calls = append(l.calls, call{tenantID, page})
	gate := l.gates[tenantID]
	recs := append([]Request(nil), l.data[tenantID]...)
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	return Page{Results: recs, Count: len(recs)}, nil
}

func (l *fakeLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func newTestFeed(t *testing.T, l Lister) *Feed {
	t.Helper()
	logger := zerolog.Nop()
	f, err := NewFeed(l, &logger)
	require.NoError(t, err)
	return f
}

func TestFeed_SetTenantFetchesFirstPage(t *testing.T) {
	l := newFakeLister()
	l.data["hotel-a"] = []Request{{PublicID: "REQ-1", Status: model.StatusCreated}}

	f := newTestFeed(t, l)
	require.NoError(t, f.SetTenant(context.Background(), "hotel-a"))

	want := Snapshot{
		TenantID:   "hotel-a",
		PageNumber: 1,
		Requests:   []Request{{PublicID: "REQ-1", Status: model.StatusCreated}},
		Total:      1,
	}
	if diff := cmp.Diff(want, f.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, f.SetTenant(context.Background(), ""))
	require.Empty(t, f.Snapshot().Requests)
	require.Empty(t, f.Snapshot().TenantID)
	require.Equal(t, 1, l.callCount())
}

func TestFeed_SlowTenantFetchIsDiscarded(t *testing.T) {
	l := newFakeLister()
	l.data["hotel-a"] = []Request{{PublicID: "A-1"}}
	l.data["hotel-b"] = []Request{{PublicID: "B-1"}}
	gate := make(chan struct{})
	l.gates["hotel-a"] = gate

	f := newTestFeed(t, l)
	done := make(chan error, 1)
	go func() { done <- f.SetTenant(context.Background(), "hotel-a") }()
	require.Eventually(t, func() bool { return l.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.SetTenant(context.Background(), "hotel-b"))
	close(gate)
	require.NoError(t, <-done)

	snap := f.Snapshot()
	require.Equal(t, "hotel-b", snap.TenantID)
	require.Equal(t, []Request{{PublicID: "B-1"}}, snap.Requests)
}

func TestFeed_SetPage(t *testing.T) {
	l := newFakeLister()
	f := newTestFeed(t, l)

	require.NoError(t, f.SetPage(context.Background(), 2), "no tenant, nothing to fetch")
	require.Zero(t, l.callCount())
	require.Error(t, f.SetPage(context.Background(), 0))

	require.NoError(t, f.SetTenant(context.Background(), "hotel-a"))
	require.NoError(t, f.SetPage(context.Background(), 3))
	require.Equal(t, 3, f.Snapshot().PageNumber)
	require.Equal(t, []call{{"hotel-a", 1}, {"hotel-a", 3}}, l.calls)
}

func TestFeed_RefetchesOnRelevantEvents(t *testing.T) {
	l := newFakeLister()
	l.data["hotel-a"] = []Request{{PublicID: "REQ-1", Status: model.StatusCreated}}

	reg := bus.NewRegistry()
	f := newTestFeed(t, l)
	unsub := f.Attach(reg)
	defer unsub()
	require.NoError(t, f.SetTenant(context.Background(), "hotel-a"))

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- f.Run(ctx) }()

	body := func(id, tenant string, s model.Status) stream.Body {
		return stream.Body{PublicID: id, Status: s, TenantID: tenant}
	}

	// Another tenant: ignored.
	reg.Publish(bus.TopicRequestEvent, stream.RequestCreated{Body: body("B-1", "hotel-b", model.StatusCreated)})
	// An update for a request not on the page: ignored.
	reg.Publish(bus.TopicRequestEvent, stream.RequestUpdated{Body: body("REQ-9", "hotel-a", model.StatusConfirmed)})
	require.Never(t, func() bool { return l.callCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	l.mu.Lock()
	l.data["hotel-a"] = []Request{{PublicID: "REQ-1", Status: model.StatusAcknowledged}}
	l.mu.Unlock()
	reg.Publish(bus.TopicRequestEvent, stream.RequestUpdated{Body: body("REQ-1", "hotel-a", model.StatusAcknowledged)})
	require.Eventually(t, func() bool {
		s := f.Snapshot()
		return len(s.Requests) == 1 && s.Requests[0].Status == model.StatusAcknowledged
	}, 2*time.Second, 5*time.Millisecond)

	reg.Publish(bus.TopicRequestEvent, stream.RequestCreated{Body: body("REQ-2", "hotel-a", model.StatusCreated)})
	require.Eventually(t, func() bool { return l.callCount() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-runDone)
}

func TestNewFeed_RequiresLister(t *testing.T) {
	_, err := NewFeed(nil, nil)
	require.Error(t, err)
}

func TestFeed_OlderRefreshResolvingLastIsDropped(t *testing.T) {
	l := newFakeLister()
	l.data["hotel-a"] = []Request{{PublicID: "REQ-1", Status: model.StatusCreated}}
	f := newTestFeed(t, l)
	require.NoError(t, f.SetTenant(context.Background(), "hotel-a"))

	gate := make(chan struct{})
	l.mu.Lock()
	l.gates["hotel-a"] = gate
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- f.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return l.callCount() == 2 }, 2*time.Second, time.Millisecond)

	updated := []Request{{PublicID: "REQ-1", Status: model.StatusAcknowledged}}
	l.mu.Lock()
	delete(l.gates, "hotel-a")
	l.data["hotel-a"] = updated
	l.mu.Unlock()
	require.NoError(t, f.Refresh(context.Background()))
	require.Equal(t, updated, f.Snapshot().Requests)

	close(gate)
	require.NoError(t, <-done)
	require.Equal(t, updated, f.Snapshot().Requests)
}
