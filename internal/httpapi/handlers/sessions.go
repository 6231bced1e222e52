// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/scheduler"
)

// defaultLogLines caps how much scrollback GET /agents/{id}/logs returns
// when the caller does not specify a line count.
const defaultLogLines = 500

// Sessions serves pane log retrieval and the attach handshake.
type Sessions struct {
	cache      *cache.Cache
	adapterFor scheduler.AdapterFactory
	authz      *auth.Authorizer
}

// NewSessions returns a Sessions handler group.
func NewSessions(c *cache.Cache, adapterFor scheduler.AdapterFactory, authz *auth.Authorizer) *Sessions {
	return &Sessions{cache: c, adapterFor: adapterFor, authz: authz}
}

// Logs handles GET /agents/{id}/logs?lines=N: returns the active
// session's captured pane output via its CLI Adapter.
func (h *Sessions) Logs(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionSessionLogs, agentID, ""); !ok {
		return
	}

	agent, found := h.cache.GetAgent(agentID)
	if !found {
		writeModelError(w, model.NewNotFoundError("agent", agentID))
		return
	}

	var active *model.Session
	for _, s := range h.cache.GetSessionsByAgent(agentID) {
		if s.Status == model.SessionStatusActive {
			active = s
			break
		}
	}
	if active == nil {
		writeModelError(w, model.NewValidationError("agent", "agent has no active session"))
		return
	}

	lines := defaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			lines = n
		}
	}

	adapter := h.adapterFor(agent.Type)
	output, err := adapter.GetOutput(r.Context(), active.MultiplexerSessionName, lines)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, map[string]interface{}{
		"session_id": active.ID,
		"output":     output,
	})
}

type attachRequest struct {
	Prompt string                  `json:"prompt"`
	Config cliadapter.PromptConfig `json:"config"`
}

// Attach handles POST /agents/{id}/attach: sends a one-off prompt
// directly to an agent's active session outside the scheduler's queue,
// for interactive callers that want synchronous turn-taking with a
// specific pane rather than a scheduled task.
func (h *Sessions) Attach(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionSessionAttach, agentID, ""); !ok {
		return
	}

	agent, found := h.cache.GetAgent(agentID)
	if !found {
		writeModelError(w, model.NewNotFoundError("agent", agentID))
		return
	}

	var active *model.Session
	for _, s := range h.cache.GetSessionsByAgent(agentID) {
		if s.Status == model.SessionStatusActive {
			active = s
			break
		}
	}
	if active == nil {
		writeModelError(w, model.NewValidationError("agent", "agent has no active session"))
		return
	}

	var req attachRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeModelError(w, model.NewValidationError("prompt", "must not be empty"))
		return
	}

	adapter := h.adapterFor(agent.Type)
	result := adapter.SendPrompt(r.Context(), active.MultiplexerSessionName, req.Prompt, req.Config)

	resp := promptResultResponse{Success: result.Success, Output: result.Output, DurationMs: result.DurationMs}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	WriteEnvelope(w, http.StatusOK, resp)
}

// promptResultResponse mirrors cliadapter.PromptResult with its error
// field serialized as a string.
type promptResultResponse struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
