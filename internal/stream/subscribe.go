// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import "github.com/ManuGH/staysync/internal/bus"

// SubscribeRequestEvents subscribes fn to bus.TopicRequestEvent, dropping
// payloads that are not stream events.
func SubscribeRequestEvents(sub bus.Subscriber, fn func(Event)) func() {
	return sub.Subscribe(bus.TopicRequestEvent, func(payload any) {
		if ev, ok := payload.(Event); ok {
			fn(ev)
		}
	})
}
