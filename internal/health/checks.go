// SPDX-License-Identifier: MIT

package health

import (
	"context"
)

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckerFunc creates a named checker from fn.
func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (c *CheckerFunc) Name() string { return c.name }

func (c *CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// StreamState is the stream surface the stream checker reads.
type StreamState interface {
	Connected() bool
	TenantID() string
}

// StreamChecker reports a disconnected stream as degraded, never as
// unhealthy: the stream is a best-effort signal and reconnects on its own.
type StreamChecker struct {
	stream StreamState
}

// NewStreamChecker creates the "stream" checker.
func NewStreamChecker(s StreamState) *StreamChecker {
	return &StreamChecker{stream: s}
}

func (c *StreamChecker) Name() string { return "stream" }

func (c *StreamChecker) Check(context.Context) CheckResult {
	tenant := c.stream.TenantID()
	switch {
	case tenant == "":
		return CheckResult{Status: StatusHealthy, Message: "no active tenant"}
	case c.stream.Connected():
		return CheckResult{Status: StatusHealthy, Message: "connected to " + tenant}
	default:
		return CheckResult{Status: StatusDegraded, Message: "reconnecting to " + tenant}
	}
}

// TenantLoader is the store surface the store checker reads.
type TenantLoader interface {
	Load(ctx context.Context) (string, error)
}

// StoreChecker reports an unreadable tenant store as unhealthy.
type StoreChecker struct {
	store TenantLoader
}

// NewStoreChecker creates the "tenant_store" checker.
func NewStoreChecker(s TenantLoader) *StoreChecker {
	return &StoreChecker{store: s}
}

func (c *StoreChecker) Name() string { return "tenant_store" }

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	if _, err := c.store.Load(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
