// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package staleness

import "sync"

// Keyed is the context-marker form of Guard: the marker is a value such as a
// tenant ID or a list filter, and the generation advances only when the value
// actually changes.
type Keyed[K comparable] struct {
	*Guard

	mu  sync.Mutex
	key K
}

// NewKeyed returns a keyed guard starting at initial.
func NewKeyed[K comparable](scope string, initial K) *Keyed[K] {
	return &Keyed[K]{Guard: New(scope), key: initial}
}

// Set switches the marker. It returns the current token and whether the
// marker changed; an unchanged marker keeps in-flight fetches valid.
func (k *Keyed[K]) Set(key K) (Token, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if key == k.key {
		return k.Begin(), false
	}
	k.key = key
	return k.Advance(), true
}

// Renew keeps the marker but supersedes every outstanding token, for a
// refetch of the same context. The last refetch started is the only one
// that may write.
func (k *Keyed[K]) Renew() (K, Token) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key, k.Advance()
}

// Key returns the live marker.
func (k *Keyed[K]) Key() K {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key
}

// Current returns the live marker together with its token, read atomically
// with respect to Set.
func (k *Keyed[K]) Current() (K, Token) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key, k.Begin()
}
