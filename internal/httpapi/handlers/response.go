// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP surface's route handlers.
// Grounded on the teacher's internal/api/handlers/response.go envelope
// shape — though per SPEC_FULL.md §6, spec.md's literal response bodies
// (e.g. GET / returning {name, version, endpoints} directly, not wrapped
// under "data") take precedence over this envelope's "data" field name
// wherever the two conflict.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/khuongdo/mindmux/internal/model"
)

// Response is the standard envelope for endpoints that don't define a
// literal top-level body shape of their own.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo is one error envelope's body.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo carries response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// Error codes shared across handlers.
const (
	ErrBadRequest    = "BAD_REQUEST"
	ErrUnauthorized  = "UNAUTHORIZED"
	ErrForbidden     = "FORBIDDEN"
	ErrNotFound      = "NOT_FOUND"
	ErrRateLimited   = "RATE_LIMITED"
	ErrInternalError = "INTERNAL_ERROR"
)

// WriteJSON writes data as the literal top-level response body — used
// for endpoints whose shape spec.md fixes directly (GET /, /health,
// /status, /metrics).
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteEnvelope wraps data in the {data, meta} envelope, for endpoints
// with no spec-literal body shape.
func WriteEnvelope(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, Response{Data: data, Meta: &MetaInfo{Timestamp: time.Now()}})
}

// WriteError writes a {error:{code,message}} body at the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Error: &ErrorInfo{Code: code, Message: message},
		Meta:  &MetaInfo{Timestamp: time.Now()},
	})
}

// ErrorToStatus maps MindMux's typed error kinds to their HTTP status
// (spec §7). Falls back to 500 for anything unrecognized.
func ErrorToStatus(err error) (int, string) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		authnErr      *model.AuthenticationError
		authzErr      *model.AuthorizationError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrBadRequest
	case errors.As(err, &authnErr):
		return http.StatusUnauthorized, ErrUnauthorized
	case errors.As(err, &authzErr):
		return http.StatusForbidden, ErrForbidden
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrNotFound
	default:
		return http.StatusInternalServerError, ErrInternalError
	}
}
