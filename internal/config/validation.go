// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"

	"github.com/ManuGH/staysync/internal/validate"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.BackendURL("BaseURL", cfg.BaseURL)
	v.LogLevel("Log.Level", cfg.Log.Level)

	if _, _, err := net.SplitHostPort(cfg.API.Listen); err != nil {
		v.AddError("API.Listen", "must be host:port", cfg.API.Listen)
	}
	v.NonNegative("API.RateLimit", cfg.API.RateLimit)
	v.PositiveDuration("API.ShutdownTimeout", cfg.API.ShutdownTimeout)

	v.Placeholder("Stream.PathTemplate", cfg.Stream.PathTemplate, "{tenant}")
	v.PositiveDuration("Stream.InitialBackoff", cfg.Stream.InitialBackoff)
	v.PositiveDuration("Stream.MaxBackoff", cfg.Stream.MaxBackoff)
	v.DurationAtLeast("Stream.MaxBackoff", cfg.Stream.MaxBackoff, cfg.Stream.InitialBackoff, "Stream.InitialBackoff")

	v.OneOf("Notifications.Filter", cfg.Notifications.Filter, []string{"unread", "all"})
	if cfg.Notifications.PollInterval < 0 {
		v.AddError("Notifications.PollInterval", "cannot be negative", cfg.Notifications.PollInterval)
	}
	v.PositiveDuration("Notifications.MinRefreshInterval", cfg.Notifications.MinRefreshInterval)
	v.PositiveDuration("Notifications.RequestTimeout", cfg.Notifications.RequestTimeout)

	v.OneOf("Store.Backend", cfg.Store.Backend, []string{"file", "redis", "badger", "sqlite", "memory"})
	switch cfg.Store.Backend {
	case "redis":
		v.NotEmpty("Store.RedisAddr", cfg.Store.RedisAddr)
		v.NonNegative("Store.RedisDB", cfg.Store.RedisDB)
	case "file", "badger", "sqlite":
		v.Directory("DataDir", cfg.DataDir, false)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}
