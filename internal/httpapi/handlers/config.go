// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"sync"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/config"
)

// ConfigEndpoint serves the live configuration as a read/write resource,
// guarded by config:read / config:write. Grounded on the teacher's
// internal/api/handlers/config.go (config as a GET/PUT resource backed
// by the same loader used at startup).
type ConfigEndpoint struct {
	mu   sync.Mutex
	path string
	cfg  *config.Config
	authz *auth.Authorizer
}

// NewConfigEndpoint returns a ConfigEndpoint serving cfg, persisting
// writes back to path.
func NewConfigEndpoint(path string, cfg *config.Config, authz *auth.Authorizer) *ConfigEndpoint {
	return &ConfigEndpoint{path: path, cfg: cfg, authz: authz}
}

// Get handles GET /config.
func (h *ConfigEndpoint) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionConfigRead, "", ""); !ok {
		return
	}
	h.mu.Lock()
	cfg := *h.cfg
	h.mu.Unlock()
	WriteEnvelope(w, http.StatusOK, cfg)
}

// Put handles PUT /config: replaces fields wholesale and persists to disk.
func (h *ConfigEndpoint) Put(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionConfigWrite, "", ""); !ok {
		return
	}
	var next config.Config
	if !decodeJSONBody(w, r, &next) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := config.Save(h.path, &next); err != nil {
		writeModelError(w, err)
		return
	}
	h.cfg = &next
	WriteEnvelope(w, http.StatusOK, *h.cfg)
}
