// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Status is the lifecycle status of a guest service request. Values match
// the server's wire representation.
type Status string

const (
	StatusCreated              Status = "CREATED"
	StatusAcknowledged         Status = "ACKNOWLEDGED"
	StatusConfirmed            Status = "CONFIRMED"
	StatusNotAvailable         Status = "NOT_AVAILABLE"
	StatusNoShow               Status = "NO_SHOW"
	StatusAlreadyBookedOffline Status = "ALREADY_BOOKED_OFFLINE"
	StatusExpired              Status = "EXPIRED"
)

// AllStatuses lists every status in canonical order.
var AllStatuses = []Status{
	StatusCreated,
	StatusAcknowledged,
	StatusConfirmed,
	StatusNotAvailable,
	StatusNoShow,
	StatusAlreadyBookedOffline,
	StatusExpired,
}

// IsTerminal returns true if no transition may leave the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusNotAvailable, StatusNoShow, StatusAlreadyBookedOffline, StatusExpired:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Actor identifies who asks for a transition.
type Actor string

const (
	ActorStaff  Actor = "staff"
	ActorSystem Actor = "system"
)
