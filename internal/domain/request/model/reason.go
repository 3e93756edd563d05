// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// ReasonCode qualifies a transition into a terminal status. The set of
// accepted codes depends on the target status.
type ReasonCode string

const (
	RNone ReasonCode = ""

	// NOT_AVAILABLE
	RSoldOut       ReasonCode = "SOLD_OUT"
	RMaintenance   ReasonCode = "MAINTENANCE"
	RSeasonal      ReasonCode = "SEASONAL"
	RStaffShortage ReasonCode = "STAFF_SHORTAGE"

	// NO_SHOW
	RGuestUnreachable ReasonCode = "GUEST_UNREACHABLE"

	// EXPIRED
	RNoStaffResponse  ReasonCode = "NO_STAFF_RESPONSE"
	ROccurrencePassed ReasonCode = "OCCURRENCE_PASSED"
)
