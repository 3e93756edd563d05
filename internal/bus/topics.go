// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

// Topic names are a collaborator contract shared with the web clients; they
// must stay byte-for-byte stable.
const (
	// TopicRequestEvent carries a stream.Event for every server push.
	TopicRequestEvent = "sse:request-event"
	// TopicNotificationsRefresh has no payload; subscribers refetch unread state.
	TopicNotificationsRefresh = "notifications:refresh"
	// TopicGuestSessionExpired has no payload; the guest session is gone.
	TopicGuestSessionExpired = "guest:session-expired"
)
