// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/khuongdo/mindmux/internal/metrics"
)

// Metrics handles GET /metrics.
type Metrics struct {
	reg *metrics.Registry
}

// NewMetrics returns a Metrics handler.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{reg: reg}
}

func (h *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.reg.Snapshot())
}
