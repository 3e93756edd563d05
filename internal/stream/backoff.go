// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultInitialBackoff = 1000 * time.Millisecond
	DefaultMaxBackoff     = 30000 * time.Millisecond
)

// newBackoff returns a deterministic doubling backoff: initial, 2x, 4x, ...
// capped at maxInterval. No jitter: a single client per tenant has nobody to
// desynchronise from.
func newBackoff(initial, maxInterval time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxInterval,
	}
	b.Reset()
	return b
}

// Scheduler runs f once after d. The returned stop function cancels it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
