// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/config"
)

func TestConfigEndpoint_GetThenPut(t *testing.T) {
	audit := &fakeAuditAppender{}
	authz := auth.NewAuthorizer(audit)
	path := filepath.Join(t.TempDir(), "mindmux.hjson")
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 7080}}

	h := NewConfigEndpoint(path, cfg, authz)

	getReq := httptest.NewRequest(http.MethodGet, "/config", nil)
	getReq = withIdentity(getReq, viewerIdentity())
	w := httptest.NewRecorder()
	h.Get(w, getReq)
	assert.Equal(t, http.StatusOK, w.Code)

	next := *cfg
	next.Server.Port = 9090
	body, _ := json.Marshal(next)
	putReq := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader(body))
	putReq = withIdentity(putReq, adminIdentity())
	w2 := httptest.NewRecorder()
	h.Put(w2, putReq)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	w3 := httptest.NewRecorder()
	h.Get(w3, withIdentity(httptest.NewRequest(http.MethodGet, "/config", nil), viewerIdentity()))
	var envelope Response
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &envelope))
	data, _ := json.Marshal(envelope.Data)
	var got config.Config
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 9090, got.Server.Port)
}

func TestConfigEndpoint_Put_ViewerDenied(t *testing.T) {
	audit := &fakeAuditAppender{}
	authz := auth.NewAuthorizer(audit)
	h := NewConfigEndpoint(filepath.Join(t.TempDir(), "mindmux.hjson"), &config.Config{}, authz)

	req := httptest.NewRequest(http.MethodPut, "/config", bytes.NewReader([]byte(`{}`)))
	req = withIdentity(req, viewerIdentity())
	w := httptest.NewRecorder()
	h.Put(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
