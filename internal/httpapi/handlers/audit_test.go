// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudit_List_ViewerDenied_AdminAllowed(t *testing.T) {
	h := newHarness(t)
	audit := NewAudit(h.store, h.authz)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req = withIdentity(req, viewerIdentity())
	w := httptest.NewRecorder()
	audit.List(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req2 = withIdentity(req2, adminIdentity())
	w2 := httptest.NewRecorder()
	audit.List(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
}
