// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package httpapi wires the HTTP surface spec.md names onto the core
// services (scheduler, cache, store, auth, metrics, events). Grounded
// on the teacher's internal/api/router.go: a Dependencies struct, a
// mux.Router with a global middleware chain, then one handler group per
// concern registered under flat paths.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/config"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/httpapi/handlers"
	"github.com/khuongdo/mindmux/internal/httpapi/middleware"
	"github.com/khuongdo/mindmux/internal/metrics"
	"github.com/khuongdo/mindmux/internal/multiplexer"
	"github.com/khuongdo/mindmux/internal/ratelimit"
	"github.com/khuongdo/mindmux/internal/scheduler"
	"github.com/khuongdo/mindmux/internal/store"
	"github.com/khuongdo/mindmux/internal/termproxy"
)

// Dependencies holds every service the HTTP surface dispatches into.
type Dependencies struct {
	Scheduler     *scheduler.Scheduler
	Store         *store.Store
	Cache         *cache.Cache
	Bus           events.EventBus
	Driver        multiplexer.Driver
	AdapterFor    scheduler.AdapterFactory
	Authz         *auth.Authorizer
	Validator     *auth.Validator
	RateLimiter   *ratelimit.Limiter
	Metrics       *metrics.Registry
	Checker       *metrics.Checker
	Config        *config.Config
	ConfigPath    string
	Version       string
	Log           zerolog.Logger
	Terminal      *termproxy.Manager
}

var endpointList = []string{
	"GET /",
	"GET /health",
	"GET /metrics",
	"GET /status",
	"GET /events",
	"GET /agents",
	"POST /agents",
	"POST /agent/create",
	"GET /agents/{id}",
	"POST /agents/{id}/start",
	"POST /agents/{id}/stop",
	"POST /agents/{id}/fork",
	"DELETE /agents/{id}",
	"GET /agents/{id}/logs",
	"POST /agents/{id}/attach",
	"GET /tasks",
	"POST /tasks",
	"GET /tasks/{id}",
	"POST /tasks/{id}/cancel",
	"GET /config",
	"PUT /config",
	"GET /audit",
	"POST /keys/rotate",
	"GET /debug/terminal",
}

// NewRouter builds the full mux.Router for mindmuxd.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.CORS)
	r.Use(middleware.Authenticate(deps.Validator))
	r.Use(middleware.RateLimit(deps.RateLimiter))
	r.Use(middleware.Metrics(deps.Metrics))

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	root := handlers.NewRoot(deps.Version, endpointList)
	r.Handle("/", root).Methods("GET")

	health := handlers.NewHealth(deps.Checker, deps.Metrics, deps.Version)
	r.Handle("/health", health).Methods("GET")

	metricsHandler := handlers.NewMetrics(deps.Metrics)
	r.Handle("/metrics", metricsHandler).Methods("GET")

	status := handlers.NewStatus(deps.Cache)
	r.Handle("/status", status).Methods("GET")

	sse := handlers.NewEvents(deps.Bus)
	r.Handle("/events", sse).Methods("GET")

	lifecycle := handlers.NewAgentLifecycle(deps.Store, deps.Cache, deps.Driver, deps.AdapterFor, deps.Bus, deps.Log)
	agents := handlers.NewAgents(deps.Scheduler, lifecycle, deps.Cache, deps.Authz)
	r.HandleFunc("/agents", agents.List).Methods("GET")
	r.HandleFunc("/agents", agents.Create).Methods("POST")
	r.HandleFunc("/agent/create", agents.Create).Methods("POST")
	r.HandleFunc("/agents/{id}", agents.Get).Methods("GET")
	r.HandleFunc("/agents/{id}", agents.Delete).Methods("DELETE")
	r.HandleFunc("/agents/{id}/start", agents.Start).Methods("POST")
	r.HandleFunc("/agents/{id}/stop", agents.Stop).Methods("POST")
	r.HandleFunc("/agents/{id}/fork", agents.Fork).Methods("POST")

	sessions := handlers.NewSessions(deps.Cache, deps.AdapterFor, deps.Authz)
	r.HandleFunc("/agents/{id}/logs", sessions.Logs).Methods("GET")
	r.HandleFunc("/agents/{id}/attach", sessions.Attach).Methods("POST")

	tasks := handlers.NewTasks(deps.Scheduler, deps.Cache, deps.Authz)
	r.HandleFunc("/tasks", tasks.List).Methods("GET")
	r.HandleFunc("/tasks", tasks.Create).Methods("POST")
	r.HandleFunc("/tasks/{id}", tasks.Get).Methods("GET")
	r.HandleFunc("/tasks/{id}/cancel", tasks.Cancel).Methods("POST")

	configEndpoint := handlers.NewConfigEndpoint(deps.ConfigPath, deps.Config, deps.Authz)
	r.HandleFunc("/config", configEndpoint.Get).Methods("GET")
	r.HandleFunc("/config", configEndpoint.Put).Methods("PUT")

	audit := handlers.NewAudit(deps.Store, deps.Authz)
	r.HandleFunc("/audit", audit.List).Methods("GET")

	keys := handlers.NewKeys(deps.Validator, deps.Config.TokenTTLDuration(), deps.Authz)
	r.HandleFunc("/keys/rotate", keys.Rotate).Methods("POST")

	if deps.Terminal != nil {
		terminal := handlers.NewTerminal(deps.Terminal, deps.Authz, deps.Log)
		r.Handle("/debug/terminal", terminal).Methods("GET")
	}

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, handlers.ErrNotFound, "no such route")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusMethodNotAllowed, handlers.ErrBadRequest, "method not allowed")
}
