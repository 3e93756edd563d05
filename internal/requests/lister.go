// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/staysync/internal/domain/request/model"
	"github.com/ManuGH/staysync/internal/log"
	"github.com/ManuGH/staysync/internal/platform/httpx"
	"github.com/google/uuid"
)

var (
	ErrUnavailable = errors.New("requests: host unreachable or transport failure")
	ErrStatus      = errors.New("requests: unexpected status")
	ErrBadResponse = errors.New("requests: invalid response format or malformed data")
)

// Request is the list projection of a guest service request.
type Request struct {
	PublicID  string       `json:"public_id"`
	Status    model.Status `json:"status"`
	Title     string       `json:"title"`
	GuestName string       `json:"guest_name,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Page is one page of a tenant's requests.
type Page struct {
	Results []Request `json:"results"`
	Count   int       `json:"count"`
}

// Lister fetches pages of requests for a tenant.
type Lister interface {
	ListRequests(ctx context.Context, tenantID string, page int) (Page, error)
}

// HTTPLister implements Lister against the backend's tenant-scoped listing.
type HTTPLister struct {
	base string
	http *http.Client
}

func NewHTTPLister(base string, hc *http.Client) *HTTPLister {
	if hc == nil {
		hc = httpx.NewAPIClient(15*time.Second, nil)
	}
	return &HTTPLister{base: strings.TrimRight(base, "/"), http: hc}
}

func (l *HTTPLister) ListRequests(ctx context.Context, tenantID string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	u := fmt.Sprintf("%s/api/v1/tenants/%s/requests?page=%s", l.base, url.PathEscape(tenantID), strconv.Itoa(page))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, err
	}
	reqID := log.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")

	res, err := l.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return Page{}, fmt.Errorf("%w: HTTP %d: %s", ErrStatus, res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var p Page
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if p.Results == nil {
		p.Results = []Request{}
	}
	return p, nil
}
