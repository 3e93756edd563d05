// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package staleness discards results of asynchronous fetches whose
// originating context (tenant, filter, page) was superseded while they were
// in flight.
//
// A fetch captures a Token before it starts and hands it back when it
// completes. Only a token from the current generation may write shared
// state. Stale results are not errors; they are dropped and counted.
package staleness

import (
	"context"
	"sync"

	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/metrics"
)

// Token is the generation marker captured at fetch start.
type Token struct {
	gen uint64
}

// Generation exposes the raw counter for logging.
func (t Token) Generation() uint64 { return t.gen }

// Guard owns one generation counter for one mutable context.
type Guard struct {
	scope string

	mu  sync.Mutex
	gen uint64
}

// New returns a guard; scope labels discard metrics and logs.
func New(scope string) *Guard {
	return &Guard{scope: scope}
}

// Scope returns the metrics label of the guard.
func (g *Guard) Scope() string { return g.scope }

// Begin captures the current generation without superseding anything.
func (g *Guard) Begin() Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Token{gen: g.gen}
}

// Advance supersedes every outstanding token and returns the new current one.
// Call it whenever the guarded context changes.
func (g *Guard) Advance() Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	return Token{gen: g.gen}
}

// IsCurrent reports whether t still matches the live generation.
func (g *Guard) IsCurrent(t Token) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.gen == g.gen
}

// Apply runs write only if t is current. The check and the write happen
// under the guard's lock so an Advance cannot slip in between.
func (g *Guard) Apply(t Token, write func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t.gen != g.gen {
		g.discarded(t)
		return false
	}
	write()
	return true
}

func (g *Guard) discarded(t Token) {
	metrics.IncStaleResult(g.scope)
	logger := log.WithComponent("staleness")
	logger.Debug().
		Str(log.FieldScope, g.scope).
		Uint64("token", t.gen).
		Uint64("current", g.gen).
		Msg("discarding stale result")
}

// Run advances the generation, performs fetch and applies its result only
// if no later Run or Advance happened meanwhile. Of two overlapping runs the
// one started last wins, whatever order they finish in. A stale result
// reports applied=false with a nil error. Fetch errors are returned as-is.
func Run[T any](ctx context.Context, g *Guard, fetch func(context.Context) (T, error), apply func(T)) (bool, error) {
	return RunWith(ctx, g, g.Advance(), fetch, apply)
}

// RunWith is Run for callers that captured their token earlier, typically
// from Advance when they changed the context themselves.
func RunWith[T any](ctx context.Context, g *Guard, t Token, fetch func(context.Context) (T, error), apply func(T)) (bool, error) {
	v, err := fetch(ctx)
	if err != nil {
		return false, err
	}
	return g.Apply(t, func() { apply(v) }), nil
}
