// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/staysync/internal/domain/request/model"

// Transition is a single allowed edge in the request state machine.
type Transition struct {
	From  model.Status
	To    model.Status
	Actor model.Actor // empty means any actor
}

var transitionsTable = []Transition{
	// Canonical path
	{From: model.StatusCreated, To: model.StatusAcknowledged},
	{From: model.StatusAcknowledged, To: model.StatusConfirmed},
	{From: model.StatusAcknowledged, To: model.StatusNotAvailable},
	{From: model.StatusAcknowledged, To: model.StatusNoShow},
	{From: model.StatusAcknowledged, To: model.StatusAlreadyBookedOffline},

	// Shortcut: CREATED may close directly
	{From: model.StatusCreated, To: model.StatusConfirmed},
	{From: model.StatusCreated, To: model.StatusNotAvailable},
	{From: model.StatusCreated, To: model.StatusNoShow},
	{From: model.StatusCreated, To: model.StatusAlreadyBookedOffline},
	{From: model.StatusCreated, To: model.StatusExpired},

	// System expiry override
	{From: model.StatusAcknowledged, To: model.StatusExpired, Actor: model.ActorSystem},
}

var reasonsTable = map[model.Status][]model.ReasonCode{
	model.StatusNotAvailable: {model.RSoldOut, model.RMaintenance, model.RSeasonal, model.RStaffShortage},
	model.StatusNoShow:       {model.RGuestUnreachable},
	model.StatusExpired:      {model.RNoStaffResponse, model.ROccurrencePassed},
}

// TransitionFor returns the table edge for from->to usable by actor.
func TransitionFor(actor model.Actor, from, to model.Status) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From != from || tr.To != to {
			continue
		}
		if tr.Actor == "" || tr.Actor == actor {
			return tr, true
		}
	}
	return Transition{}, false
}
