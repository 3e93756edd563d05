// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/staysync/internal/domain/booking"
	"github.com/ManuGH/staysync/internal/domain/request/lifecycle"
	"github.com/ManuGH/staysync/internal/domain/request/model"
	"github.com/ManuGH/staysync/internal/log"
)

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Snapshot())
}

type switchTenantRequest struct {
	TenantID *string `json:"tenant_id"`
}

func (s *Server) handleSwitchTenant(w http.ResponseWriter, r *http.Request) {
	var req switchTenantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if req.TenantID == nil {
		writeBadRequest(w, r, errors.New("tenant_id is required; use \"\" to sign out"))
		return
	}
	id := strings.TrimSpace(*req.TenantID)

	ctx := log.ContextWithTenantID(r.Context(), id)
	if err := s.core.SwitchTenant(ctx, id); err != nil {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Warn().Err(err).Msg("tenant switch refresh failed")
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.core.Snapshot())
}

type markReadRequest struct {
	// IDs is required; an empty list marks everything read.
	IDs *[]string `json:"ids"`
}

type markReadResponse struct {
	UnreadCount int `json:"unread_count"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if req.IDs == nil {
		writeBadRequest(w, r, errors.New("ids is required; use [] to mark all"))
		return
	}
	for _, id := range *req.IDs {
		if strings.TrimSpace(id) == "" {
			writeBadRequest(w, r, errors.New("ids must not contain empty values"))
			return
		}
	}

	if err := s.core.MarkRead(r.Context(), *req.IDs); err != nil {
		writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markReadResponse{UnreadCount: s.core.Snapshot().UnreadCount})
}

type actionsResponse struct {
	Status   model.Status   `json:"status"`
	Actor    model.Actor    `json:"actor"`
	Terminal bool           `json:"terminal"`
	Actions  []model.Status `json:"actions"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	status := model.Status(strings.ToUpper(chi.URLParam(r, "status")))
	if !status.Valid() {
		writeBadRequest(w, r, fmt.Errorf("%w: %q", lifecycle.ErrUnknownStatus, status))
		return
	}
	actor, err := parseActor(r.URL.Query().Get("actor"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	actions := lifecycle.OfferableActions(actor, status)
	if actions == nil {
		actions = []model.Status{}
	}
	writeJSON(w, http.StatusOK, actionsResponse{
		Status:   status,
		Actor:    actor,
		Terminal: lifecycle.IsTerminal(status),
		Actions:  actions,
	})
}

type checkTransitionRequest struct {
	Actor  model.Actor      `json:"actor"`
	From   model.Status     `json:"from"`
	To     model.Status     `json:"to"`
	Reason model.ReasonCode `json:"reason"`
}

type checkTransitionResponse struct {
	Allowed      bool               `json:"allowed"`
	Code         string             `json:"code,omitempty"`
	Detail       string             `json:"detail,omitempty"`
	ValidReasons []model.ReasonCode `json:"valid_reasons"`
}

// handleCheckTransition answers whether a transition would pass the local
// preconditions. A rejection is a normal 200 answer, not a request error.
func (s *Server) handleCheckTransition(w http.ResponseWriter, r *http.Request) {
	var req checkTransitionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	actor, err := parseActor(string(req.Actor))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}

	resp := checkTransitionResponse{ValidReasons: lifecycle.ValidReasons(req.To)}
	if resp.ValidReasons == nil {
		resp.ValidReasons = []model.ReasonCode{}
	}
	if err := lifecycle.Check(actor, req.From, req.To, req.Reason); err != nil {
		resp.Code = transitionCode(err)
		resp.Detail = err.Error()
	} else {
		resp.Allowed = true
	}
	writeJSON(w, http.StatusOK, resp)
}

type bookingWindowResponse struct {
	booking.Result
	WakeDelayMS *int64 `json:"wake_delay_ms,omitempty"`
}

func (s *Server) handleBookingWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var win booking.Window
	var err error
	if win.OpensAt, err = parseTime(q.Get("opens_at")); err != nil {
		writeBadRequest(w, r, fmt.Errorf("opens_at: %w", err))
		return
	}
	if win.ClosesAt, err = parseTime(q.Get("closes_at")); err != nil {
		writeBadRequest(w, r, fmt.Errorf("closes_at: %w", err))
		return
	}
	if raw := q.Get("fallback"); raw != "" {
		if win.FallbackBookable, err = strconv.ParseBool(raw); err != nil {
			writeBadRequest(w, r, fmt.Errorf("fallback: %w", err))
			return
		}
	}

	now := s.now()
	res := booking.Derive(now, win)
	resp := bookingWindowResponse{Result: res}
	if res.NextWakeAt != nil {
		ms := booking.WakeDelay(now, *res.NextWakeAt).Milliseconds()
		resp.WakeDelayMS = &ms
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseActor(raw string) (model.Actor, error) {
	switch model.Actor(strings.ToLower(raw)) {
	case "", model.ActorStaff:
		return model.ActorStaff, nil
	case model.ActorSystem:
		return model.ActorSystem, nil
	}
	return "", fmt.Errorf("unknown actor %q", raw)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeBody reads one strict JSON object from a size-limited body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must hold a single JSON object")
	}
	return nil
}
