// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notifications

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/metrics"
	"github.com/ManuGH/staysync/internal/staleness"
	"github.com/ManuGH/staysync/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	DefaultMinRefreshInterval = 500 * time.Millisecond
	refreshBurst              = 2
)

// Config configures a Reconciler.
type Config struct {
	API    API
	Filter Filter // initial filter, FilterUnread if empty

	// PollInterval refreshes the unread count without a signal; zero
	// disables polling.
	PollInterval time.Duration
	// MinRefreshInterval paces signal-triggered refreshes.
	MinRefreshInterval time.Duration

	Logger *zerolog.Logger
}

// Snapshot is a copy of the reconciled state.
type Snapshot struct {
	UnreadCount int
	Filter      Filter
	PageNumber  int
	Page        []Record
	Total       int
}

type pageKey struct {
	filter Filter
	number int
}

// Reconciler owns the unread count and the current page. Other components
// only trigger refreshes, through OnBusSignal or the bus.
type Reconciler struct {
	api     API
	logger  zerolog.Logger
	poll    time.Duration
	limiter *rate.Limiter

	// count guards the unread count; view guards the page against filter
	// and page switches.
	count *staleness.Guard
	view  *staleness.Keyed[pageKey]

	// Lock order: guard, then mu. Never advance a guard while holding mu.
	mu      sync.Mutex
	unread  int
	page    []Record
	pageFor pageKey
	total   int

	kick chan struct{}
}

// New returns a reconciler with an empty page and a zero count.
func New(cfg Config) (*Reconciler, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("notifications: API is required")
	}
	if cfg.Filter == "" {
		cfg.Filter = FilterUnread
	}
	if !cfg.Filter.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, cfg.Filter)
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("notifications: negative poll interval")
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = DefaultMinRefreshInterval
	}

	logger := log.WithComponent("notifications")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	initial := pageKey{filter: cfg.Filter, number: 1}
	return &Reconciler{
		api:     cfg.API,
		logger:  logger,
		poll:    cfg.PollInterval,
		limiter: rate.NewLimiter(rate.Every(cfg.MinRefreshInterval), refreshBurst),
		count:   staleness.New("notifications.count"),
		view:    staleness.NewKeyed("notifications.page", initial),
		page:    []Record{},
		pageFor: initial,
		kick:    make(chan struct{}, 1),
	}, nil
}

// RefreshUnreadCount replaces the unread count with the server's value. A
// result that lost the race to a later refresh or a mark-read is dropped.
func (r *Reconciler) RefreshUnreadCount(ctx context.Context) error {
	ctx, span := telemetry.Tracer("notifications").Start(ctx, "notifications.refresh_unread")
	defer span.End()

	_, err := staleness.Run(ctx, r.count, r.api.UnreadCount, func(n int) {
		n = max(n, 0)
		r.mu.Lock()
		r.unread = n
		r.mu.Unlock()
		metrics.SetNotificationsUnread(n)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// SetFilter switches the filter, resets to the first page and fetches it.
// Fetches for the previous filter still in flight are discarded.
func (r *Reconciler) SetFilter(ctx context.Context, filter Filter) error {
	if !filter.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	key := pageKey{filter: filter, number: 1}
	tok, _ := r.view.Set(key)
	return r.fetchPage(ctx, tok, key)
}

// SetPage moves to page n of the current filter and fetches it.
func (r *Reconciler) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidRequest, n)
	}
	cur, _ := r.view.Current()
	key := pageKey{filter: cur.filter, number: n}
	tok, _ := r.view.Set(key)
	return r.fetchPage(ctx, tok, key)
}

// RefreshPage refetches the current filter and page. It supersedes any
// fetch of the page still in flight.
func (r *Reconciler) RefreshPage(ctx context.Context) error {
	key, tok := r.view.Renew()
	return r.fetchPage(ctx, tok, key)
}

func (r *Reconciler) fetchPage(ctx context.Context, tok staleness.Token, key pageKey) error {
	ctx, span := telemetry.Tracer("notifications").Start(ctx, "notifications.fetch_page")
	span.SetAttributes(telemetry.NotificationAttributes(string(key.filter), key.number)...)
	defer span.End()

	fetch := func(ctx context.Context) (Page, error) {
		return r.api.List(ctx, key.filter, key.number)
	}
	_, err := staleness.RunWith(ctx, r.view.Guard, tok, fetch, func(p Page) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.page = slices.Clone(p.Results)
		if r.page == nil {
			r.page = []Record{}
		}
		r.pageFor = key
		r.total = p.Count
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// MarkRead applies a mark-read optimistically and then confirms it with the
// server. An empty ids marks everything; repeated ids count once.
//
// Both guards advance first, so a count or page fetched before the
// mark-read cannot bring read records back. A page switch superseded that
// way is refetched whether or not the server accepts the mark-read. On
// failure the optimistic state stays and a *MarkReadError is returned.
func (r *Reconciler) MarkRead(ctx context.Context, ids []string) error {
	ids = uniqueIDs(ids)

	r.count.Advance()
	selected, _ := r.view.Renew()

	r.mu.Lock()
	r.applyReadLocked(ids)
	n := r.unread
	// A filter or page switch was in flight and got superseded above.
	stale := r.pageFor != selected
	r.mu.Unlock()
	metrics.SetNotificationsUnread(n)

	err := r.api.MarkRead(ctx, ids)
	if err != nil {
		metrics.IncMarkReadFailure()
		r.logger.Warn().Err(err).Int("ids", len(ids)).Msg("mark read failed")
	}
	if stale {
		if perr := r.RefreshPage(ctx); perr != nil {
			if err == nil {
				return perr
			}
			r.logger.Warn().Err(perr).Str("filter", string(selected.filter)).Msg("page refetch after mark read failed")
		}
	}
	if err != nil {
		return &MarkReadError{IDs: ids, Err: err}
	}
	return nil
}

// uniqueIDs copies ids without repeats, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *Reconciler) applyReadLocked(ids []string) {
	unreadView := r.pageFor.filter == FilterUnread

	if len(ids) == 0 {
		r.unread = 0
		if unreadView {
			r.page = []Record{}
			r.total = 0
			return
		}
		for i := range r.page {
			r.page[i].IsRead = true
		}
		return
	}

	for _, id := range ids {
		idx := slices.IndexFunc(r.page, func(rec Record) bool { return rec.ID == id })
		if idx >= 0 && r.page[idx].IsRead {
			continue
		}
		r.unread = max(r.unread-1, 0)
		if idx < 0 {
			continue
		}
		if unreadView {
			r.page = slices.Delete(r.page, idx, idx+1)
			r.total = max(r.total-1, 0)
		} else {
			r.page[idx].IsRead = true
		}
	}
}

// Reset drops all state and discards every in-flight fetch, for a tenant
// switch. The filter is kept; the page goes back to the first one.
func (r *Reconciler) Reset() {
	cur, _ := r.view.Current()
	key := pageKey{filter: cur.filter, number: 1}
	r.count.Advance()
	if _, changed := r.view.Set(key); !changed {
		r.view.Advance()
	}

	r.mu.Lock()
	r.unread = 0
	r.page = []Record{}
	r.pageFor = key
	r.total = 0
	r.mu.Unlock()
	metrics.SetNotificationsUnread(0)
}

// OnBusSignal requests an unread count refresh from the Run loop. It never
// blocks; signals arriving while one is pending are coalesced.
func (r *Reconciler) OnBusSignal() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Attach subscribes the reconciler to refresh signals on sub.
func (r *Reconciler) Attach(sub bus.Subscriber) func() {
	return sub.Subscribe(bus.TopicNotificationsRefresh, func(any) { r.OnBusSignal() })
}

// Run serves refresh signals and the poll ticker until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.poll > 0 {
		t := time.NewTicker(r.poll)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.kick:
			if err := r.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			r.refresh(ctx, "signal")
		case <-tick:
			r.refresh(ctx, "poll")
		}
	}
}

func (r *Reconciler) refresh(ctx context.Context, trigger string) {
	err := r.RefreshUnreadCount(ctx)
	switch {
	case err == nil:
		metrics.IncNotificationRefresh(trigger, "ok")
	case errors.Is(err, context.Canceled):
		metrics.IncNotificationRefresh(trigger, "canceled")
	default:
		metrics.IncNotificationRefresh(trigger, "error")
		r.logger.Warn().Err(err).Str("trigger", trigger).Msg("unread count refresh failed")
	}
}

// Snapshot returns a copy of the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		UnreadCount: r.unread,
		Filter:      r.pageFor.filter,
		PageNumber:  r.pageFor.number,
		Page:        slices.Clone(r.page),
		Total:       r.total,
	}
}

// UnreadCount returns the reconciled unread count.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}
