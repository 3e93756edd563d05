// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package booking

import (
	"context"
	"sync"

	"github.com/ManuGH/staysync/internal/log"
)

// Watcher keeps a window's derived state current on a long-lived page
// without polling: it schedules exactly one wake-up at the next boundary,
// re-derives when it fires and repeats until no boundary remains.
type Watcher struct {
	clock    Clock
	window   Window
	onChange func(Result)

	mu      sync.Mutex
	current Result
}

// NewWatcher returns a watcher; a nil clock means the wall clock. onChange
// runs once with the initial state and then on every state change.
func NewWatcher(clock Clock, w Window, onChange func(Result)) *Watcher {
	if clock == nil {
		clock = RealClock()
	}
	return &Watcher{clock: clock, window: w, onChange: onChange}
}

// Current returns the last derived result.
func (w *Watcher) Current() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run blocks until the window can no longer change or ctx is done. It
// returns ctx.Err() on cancellation and nil when the state is final.
func (w *Watcher) Run(ctx context.Context) error {
	logger := log.WithComponentFromContext(ctx, "booking")

	res := Derive(w.clock.Now(), w.window)
	w.publish(res, true)

	for res.NextWakeAt != nil {
		delay := WakeDelay(w.clock.Now(), *res.NextWakeAt)
		timer := w.clock.NewTimer(delay)
		logger.Debug().
			Str("state", string(res.State)).
			Dur("delay", delay).
			Time("boundary", *res.NextWakeAt).
			Msg("booking window wake-up scheduled")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}

		next := Derive(w.clock.Now(), w.window)
		w.publish(next, next.State != res.State)
		res = next
	}
	return nil
}

func (w *Watcher) publish(res Result, changed bool) {
	w.mu.Lock()
	w.current = res
	w.mu.Unlock()
	if changed && w.onChange != nil {
		w.onChange(res)
	}
}
