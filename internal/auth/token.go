// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth validates bearer tokens, enforces the role-based
// permission matrix and resource-ownership rule, and appends one audit
// entry per permission check (spec §4.10). Token parsing is grounded on
// xiaoyuanzhu-com/my-life-db's backend/auth/oauth.go
// (jwt.ParseWithClaims against a typed claims struct), simplified here
// to HS256 with a shared secret since MindMux has no OIDC provider.
package auth

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/khuongdo/mindmux/internal/model"
)

// Role is one of the three fixed roles in the permission matrix.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// EnvTokenVar is the fallback environment variable Token extraction
// checks when no request-scoped token is present (spec §4.10).
const EnvTokenVar = "MINDMUX_AUTH_TOKEN"

// Claims is the JWT payload MindMux issues and validates. UserID and Role
// drive every permission decision; OwnedResources backs the ownership
// check on agent:delete, agent:stop, task:cancel.
type Claims struct {
	UserID         string   `json:"userId"`
	Role           Role     `json:"role"`
	OwnedResources []string `json:"ownedResources,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller resolved from a validated token.
type Identity struct {
	UserID         string
	Role           Role
	OwnedResources map[string]bool
	Token          string
}

// Owns reports whether resourceID is in the identity's owned-resource set.
func (id Identity) Owns(resourceID string) bool {
	return id.OwnedResources[resourceID]
}

type contextKey int

const tokenContextKey contextKey = iota

// ContextWithToken returns a context carrying a request-scoped bearer
// token, for handlers that have already extracted it from an
// Authorization header.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext extracts a bearer token, checking the request-scoped
// context first and falling back to MINDMUX_AUTH_TOKEN (spec §4.10).
func TokenFromContext(ctx context.Context) (string, bool) {
	if tok, ok := ctx.Value(tokenContextKey).(string); ok && tok != "" {
		return tok, true
	}
	if tok := os.Getenv(EnvTokenVar); tok != "" {
		return tok, true
	}
	return "", false
}

// Validator parses and verifies bearer tokens against a shared HS256
// secret. The secret is mutex-guarded so key:rotate can swap it while
// requests are in flight.
type Validator struct {
	mu     sync.RWMutex
	secret []byte
}

// NewValidator returns a Validator keyed on secret.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Rotate replaces the signing secret. Tokens signed under the old secret
// stop validating immediately; callers rotating a live deployment should
// issue themselves a fresh token under the new secret in the same call
// (spec §4.10 key:rotate).
func (v *Validator) Rotate(newSecret string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secret = []byte(newSecret)
}

func (v *Validator) currentSecret() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.secret
}

// IssueToken signs a new token for the given identity, expiring after ttl.
func (v *Validator) IssueToken(userID string, role Role, ownedResources []string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:         userID,
		Role:           role,
		OwnedResources: ownedResources,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.currentSecret())
}

// Validate parses and verifies a bearer token, returning the resolved
// Identity. An unknown or expired token yields an error — callers should
// treat this as an unauthenticated context, not a crash (spec §4.10).
func (v *Validator) Validate(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, model.NewAuthenticationError("empty token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.currentSecret(), nil
	})
	if err != nil {
		return nil, model.NewAuthenticationError(err.Error())
	}
	if !parsed.Valid {
		return nil, model.NewAuthenticationError("invalid token")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleOperator && claims.Role != RoleViewer {
		return nil, model.NewAuthenticationError("unknown role")
	}

	owned := make(map[string]bool, len(claims.OwnedResources))
	for _, r := range claims.OwnedResources {
		owned[r] = true
	}
	return &Identity{
		UserID:         claims.UserID,
		Role:           claims.Role,
		OwnedResources: owned,
		Token:          tokenString,
	}, nil
}
