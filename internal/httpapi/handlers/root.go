// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

// RootInfo is the literal body GET / returns (spec §6).
type RootInfo struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// Root handles GET /.
type Root struct {
	info RootInfo
}

// NewRoot returns a Root handler advertising version and the given
// endpoint list.
func NewRoot(version string, endpoints []string) *Root {
	return &Root{info: RootInfo{Name: "mindmux", Version: version, Endpoints: endpoints}}
}

func (h *Root) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.info)
}
