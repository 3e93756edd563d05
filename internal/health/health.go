// SPDX-License-Identifier: MIT

// Package health provides the liveness and readiness probes of the daemon.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/staysync/internal/log"
)

// Status is the state of one component or of the daemon as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s outranks o.
func (s Status) worse(o Status) bool {
	rank := func(v Status) int {
		switch v {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		}
		return 0
	}
	return rank(s) > rank(o)
}

// CheckResult is what a single checker reports.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one named component probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckTimeout bounds a single checker run.
const CheckTimeout = 2 * time.Second

// Manager runs the registered checkers. Register everything before serving.
type Manager struct {
	version  string
	checkers []Checker
	now      func() time.Time
}

func NewManager(version string) *Manager {
	return &Manager{version: version, checkers: []Checker{}, now: time.Now}
}

func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health is the liveness view. The overall status only reflects the
// checkers when verbose is set; liveness itself never fails.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{Status: StatusHealthy, Version: m.version, Timestamp: m.now()}
	if verbose && len(m.checkers) > 0 {
		resp.Status, resp.Checks = m.runAll(ctx)
	}
	return resp
}

// Ready is the readiness view: any unhealthy checker makes the daemon
// unready, degraded ones only lower the status.
func (m *Manager) Ready(ctx context.Context, _ bool) ReadinessResponse {
	resp := ReadinessResponse{Ready: true, Status: StatusHealthy, Timestamp: m.now()}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Status, resp.Checks = m.runAll(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// runAll runs every checker concurrently, each under CheckTimeout.
func (m *Manager) runAll(ctx context.Context) (Status, map[string]CheckResult) {
	results := make([]CheckResult, len(m.checkers))
	var g errgroup.Group
	for i, c := range m.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, CheckTimeout)
			defer cancel()
			results[i] = c.Check(cctx)
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	checks := make(map[string]CheckResult, len(results))
	for i, res := range results {
		checks[m.checkers[i].Name()] = res
		if res.Status.worse(overall) {
			overall = res.Status
		}
	}
	return overall, checks
}

// ServeHealth always answers 200 while the process runs.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)
	m.write(w, r, "health", http.StatusOK, resp)
}

// ServeReady answers 503 while any checker is unhealthy.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context(), r.URL.Query().Get("verbose") == "true")
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	m.write(w, r, "readiness", code, resp)

	if !resp.Ready {
		logger := log.WithComponentFromContext(r.Context(), "readiness")
		logger.Debug().
			Str(log.FieldEvent, "readiness.not_ready").
			Str("status", string(resp.Status)).
			Msg("daemon not ready")
	}
}

func (m *Manager) write(w http.ResponseWriter, r *http.Request, component string, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), component)
		logger.Error().Err(err).Str(log.FieldEvent, component+".encode_error").Msg("failed to encode probe response")
	}
}
