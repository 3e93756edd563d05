// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/platform/httpx"
	"github.com/google/uuid"
)

// API is the notification backend.
type API interface {
	UnreadCount(ctx context.Context) (int, error)
	List(ctx context.Context, filter Filter, page int) (Page, error)
	// MarkRead marks ids as read; an empty slice marks everything.
	MarkRead(ctx context.Context, ids []string) error
}

const (
	unreadCountPath = "/api/v1/notifications/unread-count"
	listPath        = "/api/v1/notifications"
	markReadPath    = "/api/v1/notifications/mark-read"

	maxErrorBody = 512
)

// HTTPClient implements API over the backend's JSON endpoints.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient returns a client for base. A nil hc gets a credentialed
// client with a fresh cookie jar.
func NewHTTPClient(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = httpx.NewAPIClient(15*time.Second, nil)
	}
	return &HTTPClient{
		base: strings.TrimRight(base, "/"),
		http: hc,
	}
}

func (c *HTTPClient) UnreadCount(ctx context.Context) (int, error) {
	var p struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, "unread_count", http.MethodGet, unreadCountPath, nil, &p); err != nil {
		return 0, err
	}
	return p.Count, nil
}

func (c *HTTPClient) List(ctx context.Context, filter Filter, page int) (Page, error) {
	if !filter.Valid() {
		return Page{}, &APIError{Sentinel: ErrInvalidFilter, Operation: "list", Body: string(filter)}
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("filter", string(filter))
	q.Set("page", strconv.Itoa(page))

	var p Page
	if err := c.do(ctx, "list", http.MethodGet, listPath+"?"+q.Encode(), nil, &p); err != nil {
		return Page{}, err
	}
	if p.Results == nil {
		p.Results = []Record{}
	}
	return p, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}
	return c.do(ctx, "mark_read", http.MethodPost, markReadPath, body, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &APIError{Sentinel: ErrInvalidRequest, Operation: op, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &APIError{Sentinel: ErrInvalidRequest, Operation: op, Err: err}
	}
	reqID := log.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		sentinel := ErrUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			sentinel = ErrTimeout
		}
		return &APIError{Sentinel: sentinel, Operation: op, RequestID: reqID, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{
			Sentinel:  sentinelForStatus(res.StatusCode),
			Operation: op,
			Status:    res.StatusCode,
			RequestID: reqID,
			Body:      strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: op, Status: res.StatusCode, RequestID: reqID, Err: err}
	}
	return nil
}
