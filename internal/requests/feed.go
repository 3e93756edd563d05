// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package requests keeps the active tenant's request list fresh. It refetches
// when the stream signals a change that can affect the visible page.
package requests

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/staleness"
	"github.com/ManuGH/staysync/internal/stream"
	"github.com/rs/zerolog"
)

type feedKey struct {
	tenantID string
	page     int
}

// Snapshot is a copy of the feed state.
type Snapshot struct {
	TenantID   string
	PageNumber int
	Requests   []Request
	Total      int
}

// Feed holds one page of requests for the active tenant.
type Feed struct {
	lister Lister
	logger zerolog.Logger
	view   *staleness.Keyed[feedKey]

	mu       sync.Mutex
	shown    feedKey
	requests []Request
	total    int

	kick chan struct{}
}

// NewFeed returns an empty feed with no tenant.
func NewFeed(lister Lister, logger *zerolog.Logger) (*Feed, error) {
	if lister == nil {
		return nil, fmt.Errorf("requests: lister is required")
	}
	l := log.WithComponent("requests")
	if logger != nil {
		l = *logger
	}
	initial := feedKey{page: 1}
	return &Feed{
		lister:   lister,
		logger:   l,
		view:     staleness.NewKeyed("requests.page", initial),
		shown:    initial,
		requests: []Request{},
		kick:     make(chan struct{}, 1),
	}, nil
}

// SetTenant switches to tenantID's first page. An empty tenantID clears the
// feed without fetching.
func (f *Feed) SetTenant(ctx context.Context, tenantID string) error {
	key := feedKey{tenantID: tenantID, page: 1}
	tok, changed := f.view.Set(key)
	if tenantID == "" {
		f.view.Apply(tok, func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.shown = key
			f.requests = []Request{}
			f.total = 0
		})
		return nil
	}
	if !changed {
		return f.Refresh(ctx)
	}
	return f.fetch(ctx, tok, key)
}

// SetPage moves to page n of the active tenant.
func (f *Feed) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("requests: invalid page %d", n)
	}
	cur, _ := f.view.Current()
	if cur.tenantID == "" {
		return nil
	}
	key := feedKey{tenantID: cur.tenantID, page: n}
	tok, _ := f.view.Set(key)
	return f.fetch(ctx, tok, key)
}

// Refresh refetches the current page, superseding fetches still in flight.
func (f *Feed) Refresh(ctx context.Context) error {
	key, tok := f.view.Renew()
	if key.tenantID == "" {
		return nil
	}
	return f.fetch(ctx, tok, key)
}

func (f *Feed) fetch(ctx context.Context, tok staleness.Token, key feedKey) error {
	fetch := func(ctx context.Context) (Page, error) {
		return f.lister.ListRequests(ctx, key.tenantID, key.page)
	}
	_, err := staleness.RunWith(ctx, f.view.Guard, tok, fetch, func(p Page) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.shown = key
		f.requests = slices.Clone(p.Results)
		if f.requests == nil {
			f.requests = []Request{}
		}
		f.total = p.Count
	})
	return err
}

// Attach subscribes the feed to request events on sub. Handlers only queue
// a refresh; Run performs it.
func (f *Feed) Attach(sub bus.Subscriber) func() {
	return stream.SubscribeRequestEvents(sub, f.onEvent)
}

func (f *Feed) onEvent(ev stream.Event) {
	f.mu.Lock()
	shown := f.shown
	visible := slices.ContainsFunc(f.requests, func(r Request) bool { return r.PublicID == ev.Data().PublicID })
	f.mu.Unlock()

	if shown.tenantID == "" || ev.Data().TenantID != shown.tenantID {
		return
	}
	refetch := stream.Match(ev,
		// New requests land on the first page.
		func(stream.RequestCreated) bool { return shown.page == 1 },
		func(stream.RequestUpdated) bool { return visible },
	)
	if !refetch {
		return
	}
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Run performs queued refreshes until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.kick:
			if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
				f.logger.Warn().Err(err).Msg("request feed refresh failed")
			}
		}
	}
}

// Snapshot returns a copy of the shown page.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		TenantID:   f.shown.tenantID,
		PageNumber: f.shown.page,
		Requests:   slices.Clone(f.requests),
		Total:      f.total,
	}
}
