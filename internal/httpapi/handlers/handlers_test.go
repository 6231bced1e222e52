// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/httpapi/middleware"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/multiplexer"
	"github.com/khuongdo/mindmux/internal/scheduler"
	"github.com/khuongdo/mindmux/internal/store"
)

type fakeAdapter struct {
	idle bool
}

func (f *fakeAdapter) CheckInstalled(ctx context.Context) bool { return true }
func (f *fakeAdapter) GetInstallInstructions() string          { return "" }
func (f *fakeAdapter) SpawnProcess(ctx context.Context, sessionName string, cfg cliadapter.SpawnConfig) error {
	return nil
}
func (f *fakeAdapter) SendPrompt(ctx context.Context, sessionName, prompt string, cfg cliadapter.PromptConfig) cliadapter.PromptResult {
	return cliadapter.PromptResult{Success: true, Output: "ok", DurationMs: 1}
}
func (f *fakeAdapter) SendCommand(ctx context.Context, sessionName, raw string) error { return nil }
func (f *fakeAdapter) IsIdle(ctx context.Context, sessionName string) (bool, error) {
	return f.idle, nil
}
func (f *fakeAdapter) GetOutput(ctx context.Context, sessionName string, lines int) (string, error) {
	return "output line", nil
}
func (f *fakeAdapter) Terminate(ctx context.Context, sessionName string) error { return nil }

type testHarness struct {
	sched     *scheduler.Scheduler
	store     *store.Store
	cache     *cache.Cache
	bus       events.EventBus
	driver    multiplexer.Driver
	adapter   *fakeAdapter
	authz     *auth.Authorizer
	validator *auth.Validator
}

type fakeAuditAppender struct {
	entries []*model.AuditEntry
}

func (f *fakeAuditAppender) AppendAudit(e *model.AuditEntry) (int64, error) {
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return e.ID, nil
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c := cache.New()
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	t.Cleanup(func() { bus.Close() })

	adapter := &fakeAdapter{idle: true}
	factory := func(agentType model.AgentType) cliadapter.Adapter { return adapter }

	sched := scheduler.New(st, c, bus, factory, zerolog.Nop())
	// authz writes through the real store so handler tests can assert on
	// store.ListAudit exactly as an admin inspecting /audit would see.
	authz := auth.NewAuthorizer(st)
	validator := auth.NewValidator("test-secret")

	return &testHarness{
		sched:     sched,
		store:     st,
		cache:     c,
		bus:       bus,
		driver:    multiplexer.NewFakeDriver(),
		adapter:   adapter,
		authz:     authz,
		validator: validator,
	}
}

func (h *testHarness) adapterFor(agentType model.AgentType) cliadapter.Adapter {
	return h.adapter
}

// withIdentity attaches an Identity directly to the request context, the
// same way Authenticate would after validating a bearer token.
func withIdentity(r *http.Request, id *auth.Identity) *http.Request {
	return r.WithContext(middleware.ContextWithIdentityForTest(r.Context(), id))
}

func newRequest(method, target string, vars map[string]string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}
