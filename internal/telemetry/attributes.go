// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for staysync.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Sync attributes
	TenantIDKey         = "sync.tenant_id"
	NotificationFilter  = "notifications.filter"
	NotificationPageKey = "notifications.page"
	RequestPublicIDKey  = "request.public_id"
	RequestStatusKey    = "request.status"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// TenantAttributes tags a span with the active tenant; empty yields none.
func TenantAttributes(tenantID string) []attribute.KeyValue {
	if tenantID == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String(TenantIDKey, tenantID)}
}

// NotificationAttributes tags a notification fetch.
func NotificationAttributes(filter string, page int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(NotificationFilter, filter),
		attribute.Int(NotificationPageKey, page),
	}
}

// RequestAttributes tags work on a single guest request.
func RequestAttributes(publicID, status string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if publicID != "" {
		attrs = append(attrs, attribute.String(RequestPublicIDKey, publicID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(RequestStatusKey, status))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
