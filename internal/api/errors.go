// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/staysync/internal/domain/request/lifecycle"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/notifications"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind string, err error) {
	body := errorBody{Error: kind, RequestID: log.RequestIDFromContext(r.Context())}
	if err != nil {
		body.Detail = err.Error()
	}
	writeJSON(w, code, body)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, "bad_request", err)
}

// writeUpstreamError maps a failure of the sync backend onto a gateway
// status. The local optimistic state is already applied at this point.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notifications.ErrInvalidFilter), errors.Is(err, notifications.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, notifications.ErrUnauthorized):
		writeError(w, r, http.StatusBadGateway, "upstream_unauthorized", err)
	case errors.Is(err, notifications.ErrTimeout):
		writeError(w, r, http.StatusGatewayTimeout, "upstream_timeout", err)
	case errors.Is(err, notifications.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "upstream_unavailable", err)
	default:
		writeError(w, r, http.StatusBadGateway, "upstream_error", err)
	}
}

// transitionCode names the precondition a rejected transition failed.
func transitionCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		return "unknown_status"
	case errors.Is(err, lifecycle.ErrSameStatus):
		return "same_status"
	case errors.Is(err, lifecycle.ErrTerminal):
		return "terminal"
	case errors.Is(err, lifecycle.ErrForbidden):
		return "forbidden"
	case errors.Is(err, lifecycle.ErrInvalidReason):
		return "invalid_reason"
	default:
		return "rejected"
	}
}
