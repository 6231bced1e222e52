// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/store"
)

// Audit serves the append-only audit ledger, admin-only per the
// permission matrix.
type Audit struct {
	store *store.Store
	authz *auth.Authorizer
}

// NewAudit returns an Audit handler.
func NewAudit(st *store.Store, authz *auth.Authorizer) *Audit {
	return &Audit{store: st, authz: authz}
}

// List handles GET /audit.
func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionAuditRead, "", ""); !ok {
		return
	}
	entries, err := h.store.ListAudit()
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, entries)
}
