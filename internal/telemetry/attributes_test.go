// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/api/v1/status", 200)

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/api/v1/status")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestTenantAttributes(t *testing.T) {
	if attrs := TenantAttributes(""); len(attrs) != 0 {
		t.Fatalf("Expected no attributes for empty tenant, got %d", len(attrs))
	}
	attrs := TenantAttributes("hotel-1")
	verifyAttribute(t, attrs, TenantIDKey, "hotel-1")
}

func TestRequestAttributes(t *testing.T) {
	tests := []struct {
		name     string
		publicID string
		status   string
		wantLen  int
	}{
		{name: "all fields", publicID: "REQ-1", status: "CREATED", wantLen: 2},
		{name: "only id", publicID: "REQ-1", wantLen: 1},
		{name: "empty", wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := RequestAttributes(tt.publicID, tt.status)
			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			if tt.publicID != "" {
				verifyAttribute(t, attrs, RequestPublicIDKey, tt.publicID)
			}
			if tt.status != "" {
				verifyAttribute(t, attrs, RequestStatusKey, tt.status)
			}
		})
	}
}

func TestNotificationAttributes(t *testing.T) {
	attrs := NotificationAttributes("unread", 2)
	verifyAttribute(t, attrs, NotificationFilter, "unread")
	verifyIntAttribute(t, attrs, NotificationPageKey, 2)
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes(errors.New("test error"), "network_error")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "network_error")
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if got := attr.Value.AsString(); got != want {
				t.Errorf("Attribute %s = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, want int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if got := attr.Value.AsInt64(); got != int64(want) {
				t.Errorf("Attribute %s = %d, want %d", key, got, want)
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, want bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if got := attr.Value.AsBool(); got != want {
				t.Errorf("Attribute %s = %v, want %v", key, got, want)
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
