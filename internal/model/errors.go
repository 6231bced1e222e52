// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package model defines the core entities MindMux orchestrates (agents,
// tasks, sessions, audit entries) and the validation rules that keep them
// consistent before they ever reach the durable store.
package model

import "fmt"

// ValidationError reports that caller-supplied input failed a shape,
// charset, or length rule. It maps to HTTP 400 at the API boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports that a referenced id has no matching row.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given entity kind and id.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// AuthenticationError reports a missing, malformed, or expired token. It
// maps to HTTP 401 at the API boundary.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// NewAuthenticationError builds an AuthenticationError with the given reason.
func NewAuthenticationError(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// AuthorizationError reports that a role or ownership check denied an
// action. It maps to HTTP 403 at the API boundary.
type AuthorizationError struct {
	UserID string
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %q denied %q: %s", e.UserID, e.Action, e.Reason)
}

// NewAuthorizationError builds an AuthorizationError for the given user and action.
func NewAuthorizationError(userID, action, reason string) *AuthorizationError {
	return &AuthorizationError{UserID: userID, Action: action, Reason: reason}
}
