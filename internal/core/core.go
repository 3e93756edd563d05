// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package core wires the synchronization components for one client: the
// tenant-scoped stream, notification reconciliation and the request feed.
// It exposes the only values a UI renders: connected, unread count and the
// active tenant.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/notifications"
	"github.com/ManuGH/staysync/internal/requests"
	"github.com/ManuGH/staysync/internal/staleness"
	"github.com/ManuGH/staysync/internal/tenant"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Streamer is the stream client surface the core drives.
type Streamer interface {
	Open(tenantID string)
	Close()
	Connected() bool
}

// Config carries the already constructed components.
type Config struct {
	Store         tenant.Store
	Stream        Streamer
	Notifications *notifications.Reconciler
	Feed          *requests.Feed
	Bus           bus.Subscriber
	Logger        *zerolog.Logger
}

// Snapshot is the state exposed to renderers.
type Snapshot struct {
	TenantID    string `json:"tenant_id"`
	Connected   bool   `json:"connected"`
	UnreadCount int    `json:"unread_count"`
}

// Core owns the active tenant.
type Core struct {
	store  tenant.Store
	stream Streamer
	notif  *notifications.Reconciler
	feed   *requests.Feed
	logger zerolog.Logger

	tenant *staleness.Keyed[string]
	// switchMu serialises the persist-and-reopen part of a switch so the
	// stream always ends on the last selected tenant.
	switchMu sync.Mutex

	expired chan struct{}
	unsubs  []func()
}

// New validates cfg and subscribes the components to the bus.
func New(cfg Config) (*Core, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("core: tenant store is required")
	case cfg.Stream == nil:
		return nil, fmt.Errorf("core: stream is required")
	case cfg.Notifications == nil:
		return nil, fmt.Errorf("core: notifications reconciler is required")
	case cfg.Feed == nil:
		return nil, fmt.Errorf("core: request feed is required")
	case cfg.Bus == nil:
		return nil, fmt.Errorf("core: bus is required")
	}

	logger := log.WithComponent("core")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	c := &Core{
		store:   cfg.Store,
		stream:  cfg.Stream,
		notif:   cfg.Notifications,
		feed:    cfg.Feed,
		logger:  logger,
		tenant:  staleness.NewKeyed("core.tenant", ""),
		expired: make(chan struct{}, 1),
	}
	c.unsubs = append(c.unsubs,
		c.notif.Attach(cfg.Bus),
		c.feed.Attach(cfg.Bus),
		cfg.Bus.Subscribe(bus.TopicGuestSessionExpired, func(any) {
			select {
			case c.expired <- struct{}{}:
			default:
			}
		}),
	)
	return c, nil
}

// Restore activates override, or the persisted tenant when override is
// empty. Nothing persisted is not an error.
func (c *Core) Restore(ctx context.Context, override string) error {
	id := override
	if id == "" {
		loaded, err := c.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("core: restore tenant: %w", err)
		}
		id = loaded
	}
	if id == "" {
		c.logger.Info().Msg("no tenant to restore")
		return nil
	}
	c.logger.Info().Str(log.FieldTenantID, id).Msg("restoring tenant")
	return c.SwitchTenant(ctx, id)
}

// SwitchTenant persists tenantID, reopens the stream for it and refetches
// notifications and requests. Results belonging to a tenant that was
// switched away from in the meantime are discarded. Switching to the active
// tenant only reconnects if the stream is down.
func (c *Core) SwitchTenant(ctx context.Context, tenantID string) error {
	c.switchMu.Lock()
	tok, changed := c.tenant.Set(tenantID)
	if !changed && (tenantID == "" || c.stream.Connected()) {
		c.switchMu.Unlock()
		return nil
	}
	if err := c.store.Save(ctx, tenantID); err != nil {
		// Persistence only affects the next bootstrap.
		c.logger.Warn().Err(err).Str(log.FieldTenantID, tenantID).Msg("failed to persist tenant")
	}
	c.stream.Open(tenantID)
	c.notif.Reset()
	c.switchMu.Unlock()

	c.logger.Info().Str(log.FieldTenantID, tenantID).Msg("tenant switched")

	ctx = log.ContextWithTenantID(ctx, tenantID)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.feed.SetTenant(gctx, tenantID) })
	if tenantID != "" {
		g.Go(func() error { return c.notif.RefreshUnreadCount(gctx) })
		g.Go(func() error { return c.notif.RefreshPage(gctx) })
	}
	if err := g.Wait(); err != nil {
		if !c.tenant.IsCurrent(tok) {
			return nil
		}
		return fmt.Errorf("core: refresh after tenant switch: %w", err)
	}
	return nil
}

// MarkRead forwards to the reconciler.
func (c *Core) MarkRead(ctx context.Context, ids []string) error {
	return c.notif.MarkRead(ctx, ids)
}

// Snapshot returns the renderable state.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		TenantID:    c.tenant.Key(),
		Connected:   c.stream.Connected(),
		UnreadCount: c.notif.UnreadCount(),
	}
}

// Run drives the background loops until ctx is done, then closes the stream.
func (c *Core) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.notif.Run(gctx) })
	g.Go(func() error { return c.feed.Run(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-c.expired:
				c.onSessionExpired()
			}
		}
	})
	err := g.Wait()
	c.stream.Close()
	return err
}

// onSessionExpired runs on the Run loop, never on the stream's read loop,
// since closing the stream waits for that loop to exit.
func (c *Core) onSessionExpired() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()
	c.stream.Close()
	c.logger.Warn().Str(log.FieldTenantID, c.tenant.Key()).Msg("guest session expired; stream closed")
}

// Close unsubscribes from the bus and releases the stream and store.
func (c *Core) Close() error {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.stream.Close()
	return c.store.Close()
}
