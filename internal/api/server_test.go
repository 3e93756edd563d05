// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/staysync/internal/api/middleware"
	"github.com/ManuGH/staysync/internal/core"
	"github.com/ManuGH/staysync/internal/health"
	"github.com/ManuGH/staysync/internal/notifications"
)

type fakeCore struct {
	mu        sync.Mutex
	snap      core.Snapshot
	switched  []string
	marked    [][]string
	switchErr error
	markErr   error
}

func (f *fakeCore) Snapshot() core.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeCore) SwitchTenant(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switched = append(f.switched, id)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.snap.TenantID = id
	f.snap.Connected = id != ""
	return nil
}

func (f *fakeCore) MarkRead(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, ids)
	if f.markErr != nil {
		return f.markErr
	}
	if len(ids) == 0 {
		f.snap.UnreadCount = 0
	} else {
		f.snap.UnreadCount -= len(ids)
	}
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, fc *fakeCore) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "staysync_test_total", Help: "test"}))
	s, err := New(Config{
		Core:     fc,
		Stack:    middleware.StackConfig{EnableSecurityHeaders: true, EnableLogging: true},
		Gatherer: reg,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestReadyz_ReflectsCheckers(t *testing.T) {
	hm := health.NewManager("v-test")
	hm.RegisterChecker(health.NewCheckerFunc("tenant_store", func(context.Context) health.CheckResult {
		return health.CheckResult{Status: health.StatusUnhealthy, Error: "redis down"}
	}))
	s, err := New(Config{Core: &fakeCore{}, Health: hm, Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	resp, body := do(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, string(body), "redis down")
}

func TestNew_RequiresCore(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestHealthAndStatus(t *testing.T) {
	fc := &fakeCore{snap: core.Snapshot{TenantID: "hotel-a", Connected: true, UnreadCount: 4}}
	srv := newTestServer(t, fc)

	resp, body := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"status":"healthy"`)

	resp, _ = do(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"tenant_id":"hotel-a","connected":true,"unread_count":4}`, string(body))
	require.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestSwitchTenant(t *testing.T) {
	fc := &fakeCore{}
	srv := newTestServer(t, fc)

	resp, body := do(t, srv, http.MethodPut, "/api/v1/tenant", `{"tenant_id":" hotel-b "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"tenant_id":"hotel-b","connected":true,"unread_count":0}`, string(body))

	resp, _ = do(t, srv, http.MethodPut, "/api/v1/tenant", `{"tenant_id":""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"hotel-b", ""}, fc.switched)

	for _, bad := range []string{``, `{}`, `{"tenant":"x"}`, `{"tenant_id":"a"}{"tenant_id":"b"}`, `not json`} {
		resp, body = do(t, srv, http.MethodPut, "/api/v1/tenant", bad)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", bad)
		require.Contains(t, string(body), `"error":"bad_request"`)
	}
	require.Len(t, fc.switched, 2)
}

func TestSwitchTenant_UpstreamFailure(t *testing.T) {
	fc := &fakeCore{switchErr: fmt.Errorf("core: refresh after tenant switch: %w",
		&notifications.APIError{Sentinel: notifications.ErrUnavailable, Operation: "unread-count"})}
	srv := newTestServer(t, fc)

	resp, body := do(t, srv, http.MethodPut, "/api/v1/tenant", `{"tenant_id":"hotel-a"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Contains(t, string(body), `"error":"upstream_unavailable"`)
	require.Contains(t, string(body), `"requestId":"`)
}

func TestMarkRead(t *testing.T) {
	fc := &fakeCore{snap: core.Snapshot{UnreadCount: 5}}
	srv := newTestServer(t, fc)

	resp, body := do(t, srv, http.MethodPost, "/api/v1/notifications/read", `{"ids":["n1"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"unread_count":4}`, string(body))

	resp, body = do(t, srv, http.MethodPost, "/api/v1/notifications/read", `{"ids":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"unread_count":0}`, string(body))
	require.Equal(t, [][]string{{"n1"}, {}}, fc.marked)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/notifications/read", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, "/api/v1/notifications/read", `{"ids":[" "]}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Len(t, fc.marked, 2)
}

func TestMarkRead_ErrorMapping(t *testing.T) {
	tests := []struct {
		sentinel error
		status   int
		kind     string
	}{
		{notifications.ErrUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"},
		{notifications.ErrTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
		{notifications.ErrUnauthorized, http.StatusBadGateway, "upstream_unauthorized"},
		{notifications.ErrServer, http.StatusBadGateway, "upstream_error"},
		{notifications.ErrInvalidRequest, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			fc := &fakeCore{markErr: &notifications.MarkReadError{
				IDs: []string{"n1"},
				Err: &notifications.APIError{Sentinel: tt.sentinel, Operation: "mark-read"},
			}}
			srv := newTestServer(t, fc)
			resp, body := do(t, srv, http.MethodPost, "/api/v1/notifications/read", `{"ids":["n1"]}`)
			require.Equal(t, tt.status, resp.StatusCode)

			var eb errorBody
			require.NoError(t, json.Unmarshal(body, &eb))
			require.Equal(t, tt.kind, eb.Error)
		})
	}
}

func TestActions(t *testing.T) {
	srv := newTestServer(t, &fakeCore{})

	resp, body := do(t, srv, http.MethodGet, "/api/v1/requests/CREATED/actions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"CREATED","actor":"staff","terminal":false,
		"actions":["ACKNOWLEDGED","CONFIRMED","NOT_AVAILABLE","NO_SHOW","ALREADY_BOOKED_OFFLINE","EXPIRED"]}`, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/v1/requests/acknowledged/actions?actor=system", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"EXPIRED"`)

	resp, body = do(t, srv, http.MethodGet, "/api/v1/requests/acknowledged/actions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ACKNOWLEDGED","actor":"staff","terminal":false,
		"actions":["CONFIRMED","NOT_AVAILABLE","NO_SHOW","ALREADY_BOOKED_OFFLINE"]}`, string(body))

	resp, body = do(t, srv, http.MethodGet, "/api/v1/requests/CONFIRMED/actions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"CONFIRMED","actor":"staff","terminal":true,"actions":[]}`, string(body))

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/requests/BOGUS/actions", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/api/v1/requests/CREATED/actions?actor=guest", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckTransition(t *testing.T) {
	srv := newTestServer(t, &fakeCore{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "allowed with reason",
			body: `{"from":"ACKNOWLEDGED","to":"NOT_AVAILABLE","reason":"SOLD_OUT"}`,
			want: `{"allowed":true,"valid_reasons":["SOLD_OUT","MAINTENANCE","SEASONAL","STAFF_SHORTAGE"]}`,
		},
		{
			name: "same status",
			body: `{"from":"ACKNOWLEDGED","to":"ACKNOWLEDGED"}`,
			want: `{"allowed":false,"code":"same_status","valid_reasons":[]}`,
		},
		{
			name: "terminal",
			body: `{"from":"CONFIRMED","to":"EXPIRED","actor":"system"}`,
			want: `{"allowed":false,"code":"terminal","valid_reasons":["NO_STAFF_RESPONSE","OCCURRENCE_PASSED"]}`,
		},
		{
			name: "staff cannot expire acknowledged",
			body: `{"from":"ACKNOWLEDGED","to":"EXPIRED"}`,
			want: `{"allowed":false,"code":"forbidden","valid_reasons":["NO_STAFF_RESPONSE","OCCURRENCE_PASSED"]}`,
		},
		{
			name: "invalid reason",
			body: `{"from":"CREATED","to":"NO_SHOW","reason":"SOLD_OUT"}`,
			want: `{"allowed":false,"code":"invalid_reason","valid_reasons":["GUEST_UNREACHABLE"]}`,
		},
		{
			name: "unknown status",
			body: `{"from":"CREATED","to":"DONE"}`,
			want: `{"allowed":false,"code":"unknown_status","valid_reasons":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodPost, "/api/v1/requests/transitions/check", tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var got map[string]any
			require.NoError(t, json.Unmarshal(body, &got))
			delete(got, "detail")
			normalized, err := json.Marshal(got)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(normalized))
		})
	}

	resp, _ := do(t, srv, http.MethodPost, "/api/v1/requests/transitions/check", `{"from":"CREATED","to":"ACKNOWLEDGED","actor":"guest"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBookingWindow(t *testing.T) {
	srv := newTestServer(t, &fakeCore{})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "no bounds no fallback", query: "", want: `{"state":"no_occurrence"}`},
		{name: "no bounds fallback", query: "?fallback=true", want: `{"state":"bookable"}`},
		{
			name:  "not yet open",
			query: "?opens_at=2026-03-01T12:30:00Z&closes_at=2026-03-01T18:00:00Z",
			want:  `{"state":"not_yet_open","next_wake_at":"2026-03-01T12:30:00Z","wake_delay_ms":1800000}`,
		},
		{
			name:  "open, far close is capped",
			query: "?opens_at=2026-03-01T10:00:00Z&closes_at=2026-03-02T12:00:00Z",
			want:  `{"state":"bookable","next_wake_at":"2026-03-02T12:00:00Z","wake_delay_ms":3600000}`,
		},
		{name: "closed at boundary", query: "?closes_at=2026-03-01T12:00:00Z", want: `{"state":"closed"}`},
		{name: "open ended", query: "?opens_at=2026-03-01T11:00:00Z", want: `{"state":"bookable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, http.MethodGet, "/api/v1/booking-window"+tt.query, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.JSONEq(t, tt.want, string(body))
		})
	}

	for _, bad := range []string{"?opens_at=yesterday", "?closes_at=1", "?fallback=maybe"} {
		resp, _ := do(t, srv, http.MethodGet, "/api/v1/booking-window"+bad, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestMetricsAndRouting(t *testing.T) {
	srv := newTestServer(t, &fakeCore{})

	resp, body := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "staysync_test_total")

	resp, body = do(t, srv, http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Contains(t, string(body), `"error":"not_found"`)

	resp, _ = do(t, srv, http.MethodDelete, "/api/v1/status", "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
