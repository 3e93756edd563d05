// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldTenantID  = "tenant_id"
	FieldPublicID  = "public_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTopic     = "topic"
	FieldScope     = "scope"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldBackoff  = "backoff"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
