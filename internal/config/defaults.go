// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the configuration used when neither file nor environment
// sets a value.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: "/var/lib/staysync",
		Log: LogConfig{
			Level: "info",
		},
		API: APIConfig{
			Listen:          "127.0.0.1:8088",
			RateLimit:       120,
			ShutdownTimeout: 10 * time.Second,
		},
		Stream: StreamConfig{
			PathTemplate:   "/api/v1/tenants/{tenant}/stream",
			InitialBackoff: 1000 * time.Millisecond,
			MaxBackoff:     30000 * time.Millisecond,
		},
		Notifications: NotificationsConfig{
			Filter:             "unread",
			PollInterval:       0,
			MinRefreshInterval: 500 * time.Millisecond,
			RequestTimeout:     15 * time.Second,
		},
		Store: StoreConfig{
			Backend: "file",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}
