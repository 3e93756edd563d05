// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notifications keeps the unread count and one fetched page of
// notifications consistent with mark-read actions and refresh signals.
package notifications

import "time"

// Filter selects which notifications a page contains.
type Filter string

const (
	FilterUnread Filter = "unread"
	FilterAll    Filter = "all"
)

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool {
	return f == FilterUnread || f == FilterAll
}

// Record is a notification as served by the backend. The client only ever
// flips IsRead.
type Record struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	IsRead          bool      `json:"is_read"`
	RelatedEntityID *string   `json:"related_entity_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Page is one page of a filtered listing. Count is the server-side total.
type Page struct {
	Results []Record `json:"results"`
	Count   int      `json:"count"`
}
