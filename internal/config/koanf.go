// PlacePulse - Realtime Notifications for Places and Events
// Copyright 2026 PlacePulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/placepulse/placepulse

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the locations searched for a config file, in
// order. The first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/placepulse/config.yaml",
	"/etc/placepulse/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "PLACEPULSE_CONFIG"

// envPrefix is the prefix for environment variable overrides:
// PLACEPULSE_SERVER_PORT=9000 sets server.port.
const envPrefix = "PLACEPULSE_"

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	return LoadFrom(resolveConfigPath())
}

// LoadFrom behaves like Load with an explicit config file path.
// An empty path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: struct defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: YAML config file, if present.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables. PLACEPULSE_SECURITY_JWT_SECRET
	// maps to security.jwt_secret: the first underscore after the
	// section name becomes the key separator, the rest stay literal.
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sections are the top-level config keys; used to split env var names.
var sections = []string{
	"server", "security", "database", "nats", "feeds", "reminders", "log",
}

// envToKey maps PLACEPULSE_SECTION_SOME_KEY to section.some_key.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, sec := range sections {
		prefix := sec + "_"
		if strings.HasPrefix(s, prefix) {
			return sec + "." + strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

// resolveConfigPath finds the config file to load, honoring the
// PLACEPULSE_CONFIG override. Returns empty when no file exists.
func resolveConfigPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
