// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/scheduler"
)

// Agents serves the agent CRUD and lifecycle surface.
type Agents struct {
	scheduler *scheduler.Scheduler
	lifecycle *AgentLifecycle
	cache     *cache.Cache
	authz     *auth.Authorizer
}

// NewAgents returns an Agents handler group.
func NewAgents(sch *scheduler.Scheduler, lifecycle *AgentLifecycle, c *cache.Cache, authz *auth.Authorizer) *Agents {
	return &Agents{scheduler: sch, lifecycle: lifecycle, cache: c, authz: authz}
}

type createAgentRequest struct {
	Name         string             `json:"name"`
	Type         model.AgentType    `json:"type"`
	Capabilities []model.Capability `json:"capabilities"`
}

// Create handles POST /agents and the literal POST /agent/create path
// (spec §6 scenario 5).
func (h *Agents) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authorize(w, r, h.authz, auth.ActionAgentCreate, "", "")
	if !ok {
		return
	}
	_ = identity

	var req createAgentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	agent, err := h.scheduler.RegisterAgent(req.Name, req.Type, req.Capabilities)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusCreated, agent)
}

// List handles GET /agents.
func (h *Agents) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentList, "", ""); !ok {
		return
	}
	WriteEnvelope(w, http.StatusOK, h.cache.GetAllAgents())
}

// Get handles GET /agents/{id}.
func (h *Agents) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentRead, id, ""); !ok {
		return
	}
	agent, found := h.cache.GetAgent(id)
	if !found {
		writeModelError(w, model.NewNotFoundError("agent", id))
		return
	}
	WriteEnvelope(w, http.StatusOK, agent)
}

type startAgentRequest struct {
	WorkDir string `json:"work_dir"`
}

// Start handles POST /agents/{id}/start.
func (h *Agents) Start(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentStart, id, ""); !ok {
		return
	}
	var req startAgentRequest
	if r.ContentLength != 0 {
		if !decodeJSONBody(w, r, &req) {
			return
		}
	}
	sess, err := h.lifecycle.Start(r.Context(), id, req.WorkDir)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, sess)
}

// Stop handles POST /agents/{id}/stop.
func (h *Agents) Stop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	owner := h.resourceOwner(id)
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentStop, id, owner); !ok {
		return
	}
	if err := h.lifecycle.Stop(r.Context(), id); err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Delete handles DELETE /agents/{id}.
func (h *Agents) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	owner := h.resourceOwner(id)
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentDelete, id, owner); !ok {
		return
	}
	if err := h.lifecycle.Delete(r.Context(), id); err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type forkAgentRequest struct {
	Name string `json:"name"`
}

// Fork handles POST /agents/{id}/fork, cloning a running agent's active
// session into a newly registered agent bound to a fresh pane.
func (h *Agents) Fork(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionAgentFork, id, ""); !ok {
		return
	}
	var req forkAgentRequest
	if r.ContentLength != 0 {
		if !decodeJSONBody(w, r, &req) {
			return
		}
	}
	newAgent, newSession, err := h.lifecycle.Fork(r.Context(), id, req.Name)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusCreated, map[string]interface{}{
		"agent":   newAgent,
		"session": newSession,
	})
}

// resourceOwner has no owner concept for agents today (they are not
// bound to a creating user in the current model), so ownership checks
// on agent actions fall through to the admin-only/admin-bypass rule.
func (h *Agents) resourceOwner(id string) string {
	return ""
}
