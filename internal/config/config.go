// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading for mindmuxd.
// Grounded on the teacher's internal/config/loader.go: parse HJSON into a
// generic map, round-trip through encoding/json into a typed struct so
// unknown keys don't break strict field types, then apply defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hjson/hjson-go/v4"
)

// Config is the root configuration for mindmuxd.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Store       StoreConfig       `json:"store"`
	Auth        AuthConfig        `json:"auth"`
	RateLimit   RateLimitConfig   `json:"rate_limit"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Multiplexer MultiplexerConfig `json:"multiplexer"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StoreConfig configures the durable store location.
type StoreConfig struct {
	Path string `json:"path"`
}

// AuthConfig configures token validation.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	TokenTTL  string `json:"token_ttl"`
}

// RateLimitConfig configures the default {max, window} token bucket
// applied per client id at the HTTP boundary.
type RateLimitConfig struct {
	Max    int    `json:"max"`
	Window string `json:"window"`
}

// SchedulerConfig configures dispatch polling.
type SchedulerConfig struct {
	PollInterval string `json:"poll_interval"`
}

// MultiplexerConfig configures the tmux driver.
type MultiplexerConfig struct {
	Binary string `json:"binary"`
}

// Load reads and parses an HJSON (or JSON) config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg back to path in HJSON form, the counterpart to Load
// used by the config:write administrative action.
func Save(path string, cfg *Config) error {
	data, err := hjson.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal hjson: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FindConfig looks for mindmux.hjson then mindmux.json in the current
// directory, mirroring the teacher's trellis.hjson/trellis.json search.
func FindConfig() (string, error) {
	for _, name := range []string{"mindmux.hjson", "mindmux.json"} {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				return path, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("config file not found (looked for mindmux.hjson, mindmux.json)")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Store.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Store.Path = filepath.Join(home, ".mindmux", "data.db")
		} else {
			cfg.Store.Path = "mindmux.db"
		}
	}
	if cfg.Auth.TokenTTL == "" {
		cfg.Auth.TokenTTL = "24h"
	}
	if cfg.RateLimit.Max == 0 {
		cfg.RateLimit.Max = 100
	}
	if cfg.RateLimit.Window == "" {
		cfg.RateLimit.Window = "1m"
	}
	if cfg.Scheduler.PollInterval == "" {
		cfg.Scheduler.PollInterval = "200ms"
	}
	if cfg.Multiplexer.Binary == "" {
		cfg.Multiplexer.Binary = "tmux"
	}
}

// TokenTTLDuration parses Auth.TokenTTL, falling back to 24h on a bad value.
func (c *Config) TokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// RateLimitWindowDuration parses RateLimit.Window, falling back to 1m.
func (c *Config) RateLimitWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.RateLimit.Window)
	if err != nil {
		return time.Minute
	}
	return d
}

// SchedulerPollDuration parses Scheduler.PollInterval, falling back to 200ms.
func (c *Config) SchedulerPollDuration() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.PollInterval)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}
