// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	// No t.Parallel: manipulates process environment.
	t.Setenv("PLACEPULSE_SECURITY_JWT_SECRET", testSecret)

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 8642 {
		t.Errorf("default port = %d, want 8642", cfg.Server.Port)
	}
	if cfg.Feeds.DefaultRadiusKm != 10 {
		t.Errorf("default radius = %v, want 10", cfg.Feeds.DefaultRadiusKm)
	}
	if cfg.Feeds.SeedLimit != 10 {
		t.Errorf("default seed limit = %d, want 10", cfg.Feeds.SeedLimit)
	}
	if cfg.Feeds.ExpandNeighborCells {
		t.Error("neighbor cell expansion should default to off")
	}
	if cfg.NATS.Enabled {
		t.Error("NATS should default to disabled")
	}
	if !cfg.Reminders.Enabled || cfg.Reminders.Lead != time.Hour {
		t.Errorf("reminder defaults wrong: %+v", cfg.Reminders)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLACEPULSE_SECURITY_JWT_SECRET", testSecret)
	t.Setenv("PLACEPULSE_SERVER_PORT", "9999")
	t.Setenv("PLACEPULSE_FEEDS_DEFAULT_RADIUS_KM", "25")
	t.Setenv("PLACEPULSE_LOG_LEVEL", "debug")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Feeds.DefaultRadiusKm != 25 {
		t.Errorf("radius = %v, want 25", cfg.Feeds.DefaultRadiusKm)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("PLACEPULSE_SECURITY_JWT_SECRET", testSecret)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"server:",
		"  port: 7001",
		"feeds:",
		"  expand_neighbor_cells: true",
		"database:",
		"  path: " + filepath.Join(dir, "test.duckdb"),
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want 7001", cfg.Server.Port)
	}
	if !cfg.Feeds.ExpandNeighborCells {
		t.Error("expected neighbor cell expansion enabled from file")
	}
}

func TestValidateRejectsShortSecret(t *testing.T) {
	t.Setenv("PLACEPULSE_SECURITY_JWT_SECRET", "too-short")

	if _, err := LoadFrom(""); err == nil {
		t.Error("expected validation error for short JWT secret")
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	t.Setenv("PLACEPULSE_SECURITY_JWT_SECRET", "")

	if _, err := LoadFrom(""); err == nil {
		t.Error("expected validation error for missing JWT secret")
	}
}

func TestEnvToKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"PLACEPULSE_SERVER_PORT", "server.port"},
		{"PLACEPULSE_SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"PLACEPULSE_FEEDS_DEFAULT_RADIUS_KM", "feeds.default_radius_km"},
		{"PLACEPULSE_NATS_EMBEDDED_SERVER", "nats.embedded_server"},
	}

	for _, tc := range tests {
		if got := envToKey(tc.in); got != tc.want {
			t.Errorf("envToKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
