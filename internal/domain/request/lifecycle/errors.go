// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ManuGH/staysync/internal/domain/request/model"
)

var (
	ErrUnknownStatus = errors.New("unknown request status")
	ErrSameStatus    = errors.New("request already in requested status")
	ErrTerminal      = errors.New("request status is terminal")
	ErrForbidden     = errors.New("transition not allowed")
	ErrInvalidReason = errors.New("reason not valid for target status")
)

// TransitionError is a rejected precondition. Callers show it to the user;
// it is never downgraded into a different transition.
type TransitionError struct {
	Sentinel error
	Actor    model.Actor
	From     model.Status
	To       model.Status
	Reason   model.ReasonCode
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("request transition %s -> %s (%s): %v", e.From, e.To, e.Actor, e.Sentinel)
	if e.Reason != model.RNone {
		msg = fmt.Sprintf("%s [reason %s]", msg, e.Reason)
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Sentinel
}
