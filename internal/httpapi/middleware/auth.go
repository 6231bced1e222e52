// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/metrics"
	"github.com/khuongdo/mindmux/internal/ratelimit"
)

type identityContextKey int

const identityKey identityContextKey = 0

// IdentityFromRequest returns the Identity a prior Authenticate call
// attached to the request context, if any.
func IdentityFromRequest(r *http.Request) (*auth.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*auth.Identity)
	return id, ok
}

// ContextWithIdentityForTest attaches identity to ctx the same way
// Authenticate does after validating a bearer token. Handler tests use
// this to exercise authorization paths without signing a real JWT.
func ContextWithIdentityForTest(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Authenticate extracts a bearer token (Authorization header, falling
// back to a request-scoped context value and MINDMUX_AUTH_TOKEN), and
// validates it. An unauthenticated request is let through with no
// identity attached — individual handlers decide whether the route
// requires auth, matching spec §4.10's "unknown or expired token yields
// an unauthenticated context" rather than a hard failure at this layer.
func Authenticate(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if tok, ok := auth.TokenFromContext(r.Context()); ok {
					token = tok
				}
			}

			ctx := r.Context()
			if token != "" {
				if id, err := validator.Validate(token); err == nil {
					ctx = context.WithValue(ctx, identityKey, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// clientID derives the per-client rate-limit key: the authenticated
// user id when present, otherwise the remote address.
func clientID(r *http.Request) string {
	if id, ok := IdentityFromRequest(r); ok {
		return id.UserID
	}
	return r.RemoteAddr
}

// RateLimit rejects requests once a client exceeds its token bucket,
// writing a 429 with the bucket's reset time (spec §7's RateLimitError).
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.CheckLimit(clientID(r))
			if !result.Allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", result.ResetAt.Format(http.TimeFormat))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"rate limit exceeded","reset_at":"` + result.ResetAt.Format("2006-01-02T15:04:05Z07:00") + `"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics increments the api_requests_total counter for every request.
func Metrics(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.IncAPIRequests()
			next.ServeHTTP(w, r)
		})
	}
}
