// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package lifecycle

import "github.com/ManuGH/staysync/internal/domain/request/model"

// ForbiddenTransitionReason documents why a transition is disallowed.
func ForbiddenTransitionReason(actor model.Actor, from, to model.Status) string {
	decision := DecisionFor(actor, from, to)
	if decision.Allowed {
		return ""
	}
	return decision.Reason
}
