// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/khuongdo/mindmux/internal/auth"
)

// Keys serves administrative signing-key rotation.
type Keys struct {
	validator *auth.Validator
	tokenTTL  time.Duration
	authz     *auth.Authorizer
}

// NewKeys returns a Keys handler.
func NewKeys(validator *auth.Validator, tokenTTL time.Duration, authz *auth.Authorizer) *Keys {
	return &Keys{validator: validator, tokenTTL: tokenTTL, authz: authz}
}

type rotateKeyResponse struct {
	Token string `json:"token"`
}

// Rotate handles POST /keys/rotate: generates a fresh HS256 signing
// secret, swaps it into the Validator, and returns the caller a new
// token signed under it so the admin performing the rotation is not
// immediately locked out.
func (h *Keys) Rotate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authorize(w, r, h.authz, auth.ActionKeyRotate, "", "")
	if !ok {
		return
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		writeModelError(w, err)
		return
	}
	h.validator.Rotate(hex.EncodeToString(secretBytes))

	token, err := h.validator.IssueToken(identity.UserID, identity.Role, nil, h.tokenTTL)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, rotateKeyResponse{Token: token})
}
