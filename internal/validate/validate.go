// SPDX-License-Identifier: MIT

// Package validate accumulates configuration validation errors so all of
// them can be reported at once.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	platformnet "github.com/ManuGH/staysync/internal/platform/net"
)

// Error is one failed field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError bundles every failed field of one validation run.
type ValidationError struct {
	errors []Error
}

func (e ValidationError) Errors() []Error { return e.errors }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator collects errors; the zero value is not usable, call New.
type Validator struct {
	errors []Error
}

func New() *Validator {
	return &Validator{errors: []Error{}}
}

func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

func (v *Validator) Errors() []Error { return v.errors }

// Err returns nil or a ValidationError holding a copy of the errors.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// BackendURL requires an absolute http(s) URL with a host. Credentials and
// fragments are rejected and never echoed back.
func (v *Validator) BackendURL(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, "invalid URL", platformnet.SanitizeURL(value))
		return
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: http, https)", u.Scheme), value)
	case u.Host == "":
		v.AddError(field, "URL must have a host", value)
	case u.User != nil || u.Fragment != "":
		v.AddError(field, "must not carry credentials or a fragment", platformnet.SanitizeURL(value))
	default:
		if _, ok := platformnet.ParseDirectHTTPURL(value); !ok {
			v.AddError(field, "not a direct http(s) URL", platformnet.SanitizeURL(value))
		}
	}
}

// Directory checks a data directory, creating it unless mustExist is set.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if strings.Contains(path, "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		v.AddError(field, "path is not a directory", path)
	case err == nil:
	case !errors.Is(err, os.ErrNotExist):
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case mustExist:
		v.AddError(field, "directory does not exist", path)
	default:
		if err := os.MkdirAll(abs, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	}
}

func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// Placeholder requires value to contain the literal token, e.g. "{tenant}".
func (v *Validator) Placeholder(field, value, token string) {
	if !strings.Contains(value, token) {
		v.AddError(field, "must contain "+token, value)
	}
}

func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// DurationAtLeast requires d >= floor; lowField names the floor in the message.
func (v *Validator) DurationAtLeast(field string, d, floor time.Duration, lowField string) {
	if d > 0 && d < floor {
		v.AddError(field, "must not be below "+lowField, d)
	}
}

// Fraction requires 0 <= f <= 1.
func (v *Validator) Fraction(field string, f float64) {
	if f < 0 || f > 1 {
		v.AddError(field, "must be between 0 and 1", f)
	}
}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = errors.New("invalid log level (must be: debug, info, warn, error)")

// ParseLogLevel accepts the zerolog level names the daemon supports.
func ParseLogLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, ErrInvalidLogLevel
	}
	switch level {
	case zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel, zerolog.ErrorLevel:
		return level, nil
	}
	return zerolog.NoLevel, ErrInvalidLogLevel
}

func (v *Validator) LogLevel(field, value string) {
	if _, err := ParseLogLevel(value); err != nil {
		v.AddError(field, err.Error(), value)
	}
}
