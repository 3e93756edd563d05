// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for staysync.
package config

import "time"

// AppConfig is the effective daemon configuration. The YAML layout mirrors
// the struct; every field can be overridden by a STAYSYNC_* variable.
type AppConfig struct {
	Version string `yaml:"-"`

	// BaseURL is the backend serving the stream and notification endpoints.
	BaseURL string `yaml:"baseURL"`
	DataDir string `yaml:"dataDir"`
	// Tenant, when set, overrides the persisted tenant at bootstrap.
	Tenant string `yaml:"tenant"`

	Log           LogConfig           `yaml:"log"`
	API           APIConfig           `yaml:"api"`
	Stream        StreamConfig        `yaml:"stream"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Store         StoreConfig         `yaml:"store"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type APIConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowedOrigins may issue state-changing requests from a browser in
	// addition to the API's own origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type StreamConfig struct {
	PathTemplate   string        `yaml:"pathTemplate"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
}

type NotificationsConfig struct {
	Filter             string        `yaml:"filter"`
	PollInterval       time.Duration `yaml:"pollInterval"`
	MinRefreshInterval time.Duration `yaml:"minRefreshInterval"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Redacted returns a copy safe to log.
func (c AppConfig) Redacted() AppConfig {
	if c.Store.RedisPassword != "" {
		c.Store.RedisPassword = "***"
	}
	return c
}
