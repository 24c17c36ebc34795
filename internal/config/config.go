// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

// Package config loads and validates the PlacePulse configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
// built-in defaults, then an optional YAML config file, then
// environment variables with the PLACEPULSE_ prefix
// (PLACEPULSE_SERVER_PORT=8080 maps to server.port).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Feeds     FeedsConfig     `koanf:"feeds"`
	Reminders RemindersConfig `koanf:"reminders"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitRequests is the per-IP request budget per RateLimitWindow
	// for the HTTP surface (upgrades, login, health).
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication and CORS settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens; required, minimum 32 characters.
	JWTSecret      string        `koanf:"jwt_secret" validate:"required,min=32"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername and AdminPasswordHash (bcrypt) gate the token-issuing
	// login endpoint. Empty disables login; tokens must then be minted
	// elsewhere in the platform.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	// CORSOrigins lists origins allowed to open WebSocket connections.
	// "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings for the events/places store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// NATSConfig controls the broker backing for mutation ingest.
// When disabled, ingest runs on an in-process Pub/Sub.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
}

// FeedsConfig holds notification feed tuning.
type FeedsConfig struct {
	// DefaultRadiusKm applies when a location subscription omits radius.
	DefaultRadiusKm float64 `koanf:"default_radius_km" validate:"gt=0"`

	// SeedLimit caps the events pushed in the current_events seed frame.
	SeedLimit int `koanf:"seed_limit" validate:"gt=0"`

	// ExpandNeighborCells widens geographic subscriptions to the 3x3
	// cell neighborhood. Off by default: the base contract is exact
	// single-cell matching.
	ExpandNeighborCells bool `koanf:"expand_neighbor_cells"`

	// SendBuffer is the per-session outbound frame buffer size.
	SendBuffer int `koanf:"send_buffer" validate:"gt=0"`

	// InboundRatePerSecond bounds client frames per session; bursts up
	// to twice the rate are tolerated.
	InboundRatePerSecond float64 `koanf:"inbound_rate_per_second" validate:"gt=0"`
}

// RemindersConfig controls the event reminder scheduler.
type RemindersConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// Lead is how far before an event's start the reminder fires.
	Lead time.Duration `koanf:"lead"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all default values applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8642,
			Timeout:           30 * time.Second,
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Security: SecurityConfig{
			JWTSecret:      "",
			SessionTimeout: 24 * time.Hour,
			CORSOrigins:    []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/placepulse.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "/data/nats",
		},
		Feeds: FeedsConfig{
			DefaultRadiusKm:      10,
			SeedLimit:            10,
			ExpandNeighborCells:  false,
			SendBuffer:           256,
			InboundRatePerSecond: 20,
		},
		Reminders: RemindersConfig{
			Enabled:  true,
			Interval: time.Minute,
			Lead:     time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration against struct validation tags and
// cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.NATS.Enabled && c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("invalid configuration: nats enabled without url or embedded server")
	}
	if c.Reminders.Enabled && c.Reminders.Interval <= 0 {
		return fmt.Errorf("invalid configuration: reminder interval must be positive")
	}
	return nil
}
