// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package lifecycle holds the request status state machine. It is pure: no
// I/O and no hidden state. The server enforces the same rules
// authoritatively; this copy only keeps the dashboard from offering actions
// that are guaranteed to fail.
package lifecycle

import (
	"slices"

	"github.com/ManuGH/staysync/internal/domain/request/model"
)

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

// DecisionFor evaluates from->to for actor without looking at a reason code.
func DecisionFor(actor model.Actor, from, to model.Status) Decision {
	switch {
	case !from.Valid() || !to.Valid():
		return Decision{Reason: "unknown status", Err: ErrUnknownStatus}
	case from == to:
		return Decision{Reason: "request is already " + string(to), Err: ErrSameStatus}
	case from.IsTerminal():
		return Decision{Reason: string(from) + " is terminal", Err: ErrTerminal}
	}
	if _, ok := TransitionFor(actor, from, to); !ok {
		return Decision{Reason: "no " + string(actor) + " transition " + string(from) + " -> " + string(to), Err: ErrForbidden}
	}
	return Decision{Allowed: true}
}

// CanTransition reports whether staff may move a request from -> to.
func CanTransition(from, to model.Status) bool {
	return DecisionFor(model.ActorStaff, from, to).Allowed
}

// CanTransitionAs reports whether actor may move a request from -> to.
func CanTransitionAs(actor model.Actor, from, to model.Status) bool {
	return DecisionFor(actor, from, to).Allowed
}

// IsTerminal reports whether status admits no further transition.
func IsTerminal(status model.Status) bool {
	return status.IsTerminal()
}

// ValidReasons lists the reason codes accepted for a transition into to.
func ValidReasons(to model.Status) []model.ReasonCode {
	return slices.Clone(reasonsTable[to])
}

// Check validates a full transition request, including the optional reason.
// It returns nil or a *TransitionError.
func Check(actor model.Actor, from, to model.Status, reason model.ReasonCode) error {
	d := DecisionFor(actor, from, to)
	if !d.Allowed {
		return &TransitionError{Sentinel: d.Err, Actor: actor, From: from, To: to, Reason: reason}
	}
	if reason != model.RNone && !slices.Contains(reasonsTable[to], reason) {
		return &TransitionError{Sentinel: ErrInvalidReason, Actor: actor, From: from, To: to, Reason: reason}
	}
	return nil
}

// OfferableActions lists the targets actor may move a request to from the
// given status, in canonical order.
func OfferableActions(actor model.Actor, from model.Status) []model.Status {
	var out []model.Status
	for _, to := range model.AllStatuses {
		if CanTransitionAs(actor, from, to) {
			out = append(out, to)
		}
	}
	return out
}
