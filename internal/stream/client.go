// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream owns the per-tenant server push connection. It reconnects
// with exponential backoff and republishes every decoded event on the bus.
// The stream is a "wake up and refetch" signal: events may be missed across
// reconnects and consumers must refetch authoritative state.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/staysync/internal/bus"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/metrics"
	"github.com/ManuGH/staysync/internal/platform/httpx"
	"github.com/ManuGH/staysync/internal/staleness"
	"github.com/ManuGH/staysync/internal/telemetry"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
)

// State is the connection state owned by the client.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// DefaultPathTemplate is the tenant-scoped stream path.
const DefaultPathTemplate = "/api/v1/tenants/{tenant}/stream"

var errStreamEnded = errors.New("stream ended by server")

// Config configures a Client.
type Config struct {
	BaseURL      string
	PathTemplate string // must contain {tenant}

	// HTTPClient must not carry an overall timeout; the response body is
	// read for the lifetime of the connection.
	HTTPClient *http.Client
	Publisher  bus.Publisher

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Scheduler Scheduler
	Logger    *zerolog.Logger
}

// Client holds at most one live connection, for the tenant last passed to Open.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	// guard generations mark connection lifetimes; a reconnect timer or a
	// read loop from an older generation may not touch state or publish.
	guard *staleness.Guard

	// lifecycle serialises Open and Close.
	lifecycle sync.Mutex

	mu       sync.Mutex
	tenantID string
	token    staleness.Token
	ctx      context.Context
	cancel   context.CancelFunc
	stop     func() bool
	backoff  *backoff.ExponentialBackOff
	state    State

	wg        sync.WaitGroup
	connected atomic.Bool
}

// New validates cfg and returns an idle client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("stream: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("stream: invalid base URL: %w", err)
	}
	if cfg.PathTemplate == "" {
		cfg.PathTemplate = DefaultPathTemplate
	}
	if !strings.Contains(cfg.PathTemplate, "{tenant}") {
		return nil, fmt.Errorf("stream: path template %q lacks {tenant}", cfg.PathTemplate)
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("stream: publisher is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.NewStreamClient(nil)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = timeScheduler{}
	}

	logger := log.WithComponent("stream")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		cfg:     cfg,
		logger:  logger,
		guard:   staleness.New("stream"),
		backoff: newBackoff(cfg.InitialBackoff, cfg.MaxBackoff),
		state:   StateClosed,
	}, nil
}

// Open switches the client to tenantID. The previous connection is fully
// torn down first and backoff starts again from its initial delay. An empty
// tenantID only tears down.
//
// Open and Close wait for the read loop to exit and must not be called from
// a bus handler running on that loop.
func (c *Client) Open(tenantID string) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.teardown()

	if tenantID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenantID = tenantID
	c.token = c.guard.Advance()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.backoff.Reset()
	c.wg.Add(1)
	go c.attempt(c.ctx, c.token, tenantID)
}

// Close tears the connection down for disposal. It is idempotent.
func (c *Client) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.teardown()
}

// Connected reports whether a stream is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TenantID returns the tenant of the current connection, or "".
func (c *Client) TenantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tenantID
}

func (c *Client) teardown() {
	c.mu.Lock()
	c.guard.Advance()
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	prev := c.tenantID
	c.tenantID = ""
	c.setStateLocked(StateClosed)
	c.connected.Store(false)
	c.mu.Unlock()

	c.wg.Wait()
	if prev != "" {
		c.logger.Debug().Str(log.FieldTenantID, prev).Msg("stream torn down")
	}
}

func (c *Client) attempt(ctx context.Context, tok staleness.Token, tenantID string) {
	defer c.wg.Done()

	c.mu.Lock()
	if !c.guard.IsCurrent(tok) {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	err := c.consume(ctx, tok, tenantID)
	if ctx.Err() != nil {
		return
	}
	c.fail(tok, tenantID, err)
}

func (c *Client) consume(ctx context.Context, tok staleness.Token, tenantID string) error {
	body, err := c.connect(ctx, tenantID)
	if err != nil {
		return err
	}
	defer body.Close()

	if !c.markOpen(tok, tenantID) {
		return nil
	}

	r := NewReader(body)
	for {
		frame, err := r.Next()
		if errors.Is(err, ErrFrameTooLarge) {
			metrics.IncStreamDroppedFrame("oversized")
			c.logger.Debug().Str(log.FieldTenantID, tenantID).Msg("dropping oversized stream frame")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamEnded
			}
			return err
		}
		c.dispatch(tok, tenantID, frame)
	}
}

func (c *Client) connect(ctx context.Context, tenantID string) (io.ReadCloser, error) {
	ctx, span := telemetry.Tracer("stream").Start(ctx, "stream.connect")
	span.SetAttributes(telemetry.TenantAttributes(tenantID)...)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(tenantID), nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		err := fmt.Errorf("stream: unexpected status %d", resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) markOpen(tok staleness.Token, tenantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.guard.IsCurrent(tok) {
		return false
	}
	c.backoff.Reset()
	c.setStateLocked(StateOpen)
	c.connected.Store(true)
	c.logger.Info().Str(log.FieldTenantID, tenantID).Msg("stream connected")
	return true
}

func (c *Client) fail(tok staleness.Token, tenantID string, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.guard.IsCurrent(tok) {
		return
	}

	c.connected.Store(false)
	c.setStateLocked(StateClosed)

	delay := c.backoff.NextBackOff()
	c.stop = c.cfg.Scheduler.AfterFunc(delay, func() { c.reconnect(tok, tenantID) })

	reason := "error"
	if errors.Is(cause, errStreamEnded) {
		reason = "ended"
	}
	metrics.RecordStreamReconnect(reason, delay.Seconds())
	c.logger.Warn().
		Err(cause).
		Str(log.FieldTenantID, tenantID).
		Dur(log.FieldBackoff, delay).
		Msg("stream disconnected; reconnect scheduled")
}

func (c *Client) reconnect(tok staleness.Token, tenantID string) {
	c.mu.Lock()
	if !c.guard.IsCurrent(tok) || c.ctx == nil || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.stop = nil
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	c.attempt(ctx, tok, tenantID)
}

func (c *Client) dispatch(tok staleness.Token, tenantID string, frame Frame) {
	ev, err := Decode(frame.Event, []byte(frame.Data), tenantID)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownEvent) {
			reason = "unknown_event"
		}
		metrics.IncStreamDroppedFrame(reason)
		c.logger.Debug().Err(err).Str(log.FieldTenantID, tenantID).Str("frame_event", frame.Event).Msg("dropping stream frame")
		return
	}
	// Publishing under the guard makes a concurrent teardown wait for this
	// event, and drops every event read after it. Bus handlers must not
	// call back into the client.
	c.guard.Apply(tok, func() {
		metrics.IncStreamEvent(string(ev.Kind()))
		c.cfg.Publisher.Publish(bus.TopicRequestEvent, ev)
		for _, topic := range followUpTopics(ev) {
			c.cfg.Publisher.Publish(topic, nil)
		}
	})
}

// followUpTopics lists the signals a server event implies beyond the raw
// request event. Both kinds create a server-side notification.
func followUpTopics(ev Event) []string {
	return Match(ev,
		func(RequestCreated) []string { return []string{bus.TopicNotificationsRefresh} },
		func(RequestUpdated) []string { return []string{bus.TopicNotificationsRefresh} },
	)
}

func (c *Client) streamURL(tenantID string) string {
	path := strings.ReplaceAll(c.cfg.PathTemplate, "{tenant}", url.PathEscape(tenantID))
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	metrics.SetStreamState(string(s))
}
