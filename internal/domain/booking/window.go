// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package booking derives the bookable state of an experience occurrence
// purely from the local clock and server-supplied window bounds.
package booking

import "time"

// State is the derived, never stored, state of a booking window.
type State string

const (
	StateBookable     State = "bookable"
	StateNotYetOpen   State = "not_yet_open"
	StateClosed       State = "closed"
	StateNoOccurrence State = "no_occurrence"
)

// MaxWake bounds a single scheduled wake-up. A boundary further out causes a
// harmless intermediate re-check instead of one very long timer.
const MaxWake = time.Hour

// Window holds the optional bounds of a booking window. FallbackBookable is
// the server's snapshot used only when both bounds are absent.
type Window struct {
	OpensAt          *time.Time `json:"opens_at,omitempty"`
	ClosesAt         *time.Time `json:"closes_at,omitempty"`
	FallbackBookable bool       `json:"fallback_bookable"`
}

// Result is the derived state plus the next instant it can change.
type Result struct {
	State      State      `json:"state"`
	NextWakeAt *time.Time `json:"next_wake_at,omitempty"`
}

// Derive computes the window state at now.
func Derive(now time.Time, w Window) Result {
	if w.OpensAt == nil && w.ClosesAt == nil {
		if w.FallbackBookable {
			return Result{State: StateBookable}
		}
		return Result{State: StateNoOccurrence}
	}
	if w.OpensAt != nil && now.Before(*w.OpensAt) {
		return Result{State: StateNotYetOpen, NextWakeAt: timePtr(*w.OpensAt)}
	}
	if w.ClosesAt != nil && !now.Before(*w.ClosesAt) {
		return Result{State: StateClosed}
	}
	if w.ClosesAt != nil {
		return Result{State: StateBookable, NextWakeAt: timePtr(*w.ClosesAt)}
	}
	return Result{State: StateBookable}
}

// WakeDelay returns how long to sleep before re-deriving, capped at MaxWake.
func WakeDelay(now, next time.Time) time.Duration {
	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	if d > MaxWake {
		return MaxWake
	}
	return d
}

func timePtr(t time.Time) *time.Time {
	return &t
}
