// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the in-process publish/subscribe channel that fans server
// events out to independent features.
//
// The package-level registry is intentionally global: it is created at
// process start, has no owner and lives until the process exits. Any
// component may publish or subscribe by topic name without knowing who else
// is listening. Registry values exist for tests and embedders that need an
// isolated instance; they behave identically.
//
// Delivery is synchronous on the publisher's goroutine, ordered by publish
// call and, within one publish, by subscription order. There is no
// persistence, no backpressure and no return value. Publishers must not
// mutate payloads after publishing and subscribers must not mutate them at
// all.
package bus

import (
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/metrics"
)

// Handler receives one published payload. Topics without a payload deliver nil.
type Handler func(payload any)

// Publisher is the publishing half of the bus.
type Publisher interface {
	Publish(topic string, payload any)
}

// Subscriber is the subscribing half of the bus.
type Subscriber interface {
	Subscribe(topic string, handler Handler) (unsubscribe func())
}

// Bus combines both halves.
type Bus interface {
	Publisher
	Subscriber
}

type subscription struct {
	handler Handler
	active  atomic.Bool
}

// Registry maps topic names to their ordered subscriber lists.
type Registry struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

// NewRegistry returns an empty, isolated registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string][]*subscription)}
}

// Publish delivers payload to every current subscriber of topic.
func (r *Registry) Publish(topic string, payload any) {
	r.mu.Lock()
	subs := slices.Clone(r.subs[topic])
	r.mu.Unlock()

	metrics.IncBusPublished(topic)
	for _, s := range subs {
		// Unsubscribed mid-publish.
		if !s.active.Load() {
			continue
		}
		deliver(topic, s.handler, payload)
	}
}

// Subscribe registers handler for topic. The returned function removes the
// subscription; it is idempotent and safe to call from inside a handler.
func (r *Registry) Subscribe(topic string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	s := &subscription{handler: handler}
	s.active.Store(true)

	r.mu.Lock()
	r.subs[topic] = append(r.subs[topic], s)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.active.Store(false)
			r.remove(topic, s)
		})
	}
}

// SubscriberCount reports how many live subscriptions topic has.
func (r *Registry) SubscriberCount(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[topic])
}

func (r *Registry) remove(topic string, target *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lst := r.subs[topic]
	out := make([]*subscription, 0, len(lst))
	for _, s := range lst {
		if s != target {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		delete(r.subs, topic)
	} else {
		r.subs[topic] = out
	}
}

func deliver(topic string, h Handler, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncBusHandlerPanic(topic)
			logger := log.WithComponent("bus")
			logger.Error().
				Str(log.FieldEvent, "bus.handler_panic").
				Str(log.FieldTopic, topic).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("bus subscriber panicked; continuing delivery")
		}
	}()
	h(payload)
}

var global = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return global
}

// Publish publishes on the process-wide registry.
func Publish(topic string, payload any) {
	global.Publish(topic, payload)
}

// Subscribe subscribes on the process-wide registry.
func Subscribe(topic string, handler Handler) func() {
	return global.Subscribe(topic, handler)
}

// Ensure compliance
var _ Bus = (*Registry)(nil)
