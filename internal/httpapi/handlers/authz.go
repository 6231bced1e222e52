// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/httpapi/middleware"
	"github.com/khuongdo/mindmux/internal/model"
)

// authorize resolves the caller's identity from r, checks action against
// authz, and on denial writes the appropriate error response. It returns
// the identity and true when the caller may proceed. A request with no
// identity at all never reaches the permission matrix (there is no role
// to index by) and is rejected as an AuthenticationError before Check is
// called; an authenticated-but-disallowed caller goes through Check so
// the denial is audited, per spec §4.10.
func authorize(w http.ResponseWriter, r *http.Request, authz *auth.Authorizer, action auth.Action, resourceID, resourceOwner string) (*auth.Identity, bool) {
	identity, ok := middleware.IdentityFromRequest(r)
	if !ok {
		err := model.NewAuthenticationError("missing or invalid token")
		status, code := ErrorToStatus(err)
		WriteError(w, status, code, err.Error())
		return nil, false
	}
	if err := authz.Check(identity, action, resourceID, resourceOwner); err != nil {
		status, code := ErrorToStatus(err)
		WriteError(w, status, code, err.Error())
		return nil, false
	}
	return identity, true
}

// decodeJSONBody reads and decodes r's JSON body into v, writing a 400
// response and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeModelError translates a model validation/not-found error (or any
// other error) into the right HTTP response.
func writeModelError(w http.ResponseWriter, err error) {
	status, code := ErrorToStatus(err)
	WriteError(w, status, code, err.Error())
}
