// SPDX-License-Identifier: MIT

// Package api serves the local status API of the sync daemon. It renders
// nothing; it only exposes the values the core exposes and the pure
// request-status and booking-window rules.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/staysync/internal/api/middleware"
	"github.com/ManuGH/staysync/internal/core"
	"github.com/ManuGH/staysync/internal/health"
)

// Core is the part of the sync core the API drives.
type Core interface {
	Snapshot() core.Snapshot
	SwitchTenant(ctx context.Context, tenantID string) error
	MarkRead(ctx context.Context, ids []string) error
}

// Config wires the server.
type Config struct {
	Core  Core
	Stack middleware.StackConfig
	// Health serves /healthz and /readyz; nil registers no checkers.
	Health *health.Manager
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Now is the clock for booking window derivation; nil uses time.Now.
	Now func() time.Time
}

// Server holds the router and its dependencies.
type Server struct {
	core   Core
	now    func() time.Time
	router chi.Router
}

const maxBodyBytes = 64 << 10

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Core == nil {
		return nil, errors.New("api: core is required")
	}
	s := &Server{core: cfg.Core, now: cfg.Now}
	if s.now == nil {
		s.now = time.Now
	}
	hm := cfg.Health
	if hm == nil {
		hm = health.NewManager("")
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := middleware.NewRouter(cfg.Stack)
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Put("/tenant", s.handleSwitchTenant)
		r.Post("/notifications/read", s.handleMarkRead)
		r.Get("/requests/{status}/actions", s.handleActions)
		r.Post("/requests/transitions/check", s.handleCheckTransition)
		r.Get("/booking-window", s.handleBookingWindow)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	s.router = r
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server for addr with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
