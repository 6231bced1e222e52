// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesHJSONAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mindmux.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{
		server: { port: 9090 }
		auth: { jwt_secret: "shh" }
	}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "shh", cfg.Auth.JWTSecret)
	assert.Equal(t, "24h", cfg.Auth.TokenTTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, "tmux", cfg.Multiplexer.Binary)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/mindmux.hjson")
	require.Error(t, err)
}

func TestTokenTTLDuration_FallsBackOnBadValue(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{TokenTTL: "not-a-duration"}}
	assert.Equal(t, 24*time.Hour, cfg.TokenTTLDuration())
}

func TestRateLimitWindowDuration_ParsesValid(t *testing.T) {
	cfg := &Config{RateLimit: RateLimitConfig{Window: "30s"}}
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindowDuration())
}

func TestFindConfig_NotFound(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	_, err = FindConfig()
	require.Error(t, err)
}
