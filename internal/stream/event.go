// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/staysync/internal/domain/request/model"
)

// Kind is the server-sent event name.
type Kind string

const (
	KindRequestCreated Kind = "request.created"
	KindRequestUpdated Kind = "request.updated"
)

var (
	ErrUnknownEvent     = errors.New("stream: unknown event name")
	ErrMalformedPayload = errors.New("stream: malformed event payload")
)

// Body is the part of a request event this core reads. Other fields on the
// wire are ignored.
type Body struct {
	PublicID string       `json:"public_id"`
	Status   model.Status `json:"status"`
	TenantID string       `json:"-"`
}

// Event is a closed sum type: RequestCreated or RequestUpdated. Consumers
// branch with Match so a new variant breaks every call site at compile time.
type Event interface {
	Kind() Kind
	Data() Body
	sealed()
}

// RequestCreated signals a new guest request.
type RequestCreated struct{ Body }

// RequestUpdated signals a status change on an existing request.
type RequestUpdated struct{ Body }

func (RequestCreated) Kind() Kind   { return KindRequestCreated }
func (e RequestCreated) Data() Body { return e.Body }
func (RequestCreated) sealed()      {}

func (RequestUpdated) Kind() Kind   { return KindRequestUpdated }
func (e RequestUpdated) Data() Body { return e.Body }
func (RequestUpdated) sealed()      {}

// Match dispatches ev to the function for its variant.
func Match[T any](ev Event, created func(RequestCreated) T, updated func(RequestUpdated) T) T {
	switch e := ev.(type) {
	case RequestCreated:
		return created(e)
	case RequestUpdated:
		return updated(e)
	default:
		panic(fmt.Sprintf("stream: unhandled event variant %T", ev))
	}
}

// Decode turns a named frame into an Event for tenantID.
func Decode(name string, data []byte, tenantID string) (Event, error) {
	kind := Kind(name)
	if kind != KindRequestCreated && kind != KindRequestUpdated {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	var body Body
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if body.PublicID == "" {
		return nil, fmt.Errorf("%w: missing public_id", ErrMalformedPayload)
	}
	if !body.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedPayload, body.Status)
	}
	body.TenantID = tenantID

	if kind == KindRequestCreated {
		return RequestCreated{body}, nil
	}
	return RequestUpdated{body}, nil
}
