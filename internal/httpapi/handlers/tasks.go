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

// Tasks serves the task submission, inspection, and cancellation surface.
type Tasks struct {
	scheduler *scheduler.Scheduler
	cache     *cache.Cache
	authz     *auth.Authorizer
}

// NewTasks returns a Tasks handler group.
func NewTasks(sch *scheduler.Scheduler, c *cache.Cache, authz *auth.Authorizer) *Tasks {
	return &Tasks{scheduler: sch, cache: c, authz: authz}
}

type submitTaskRequest struct {
	Prompt               string              `json:"prompt"`
	RequiredCapabilities []model.Capability  `json:"required_capabilities"`
	Priority             int                 `json:"priority"`
	DependsOn            []string            `json:"depends_on"`
	MaxRetries           int                 `json:"max_retries"`
	TimeoutMs            int                 `json:"timeout_ms"`
}

// Create handles POST /tasks.
func (h *Tasks) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionTaskQueue, "", ""); !ok {
		return
	}
	var req submitTaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	task, err := h.scheduler.SubmitTask(req.Prompt, req.RequiredCapabilities, req.Priority, req.DependsOn, req.MaxRetries, req.TimeoutMs)
	if err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusCreated, task)
}

// List handles GET /tasks.
func (h *Tasks) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionTaskList, "", ""); !ok {
		return
	}
	WriteEnvelope(w, http.StatusOK, h.cache.GetAllTasks())
}

// Get handles GET /tasks/{id}.
func (h *Tasks) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionTaskRead, id, ""); !ok {
		return
	}
	task, found := h.cache.GetTask(id)
	if !found {
		writeModelError(w, model.NewNotFoundError("task", id))
		return
	}
	WriteEnvelope(w, http.StatusOK, task)
}

// Cancel handles POST /tasks/{id}/cancel.
func (h *Tasks) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := authorize(w, r, h.authz, auth.ActionTaskCancel, id, ""); !ok {
		return
	}
	if err := h.scheduler.CancelTask(id); err != nil {
		writeModelError(w, err)
		return
	}
	WriteEnvelope(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
