// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/khuongdo/mindmux/internal/metrics"
)

// Health handles GET /health.
type Health struct {
	checker *metrics.Checker
	reg     *metrics.Registry
	version string
}

// NewHealth returns a Health handler.
func NewHealth(checker *metrics.Checker, reg *metrics.Registry, version string) *Health {
	return &Health{checker: checker, reg: reg, version: version}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.checker.Check(r.Context(), h.reg, h.version)
	httpStatus := http.StatusOK
	if status.Status != metrics.HealthHealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	WriteJSON(w, httpStatus, status)
}
