// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/model"
)

// StatusSnapshot is the literal body GET /status returns (spec §6).
type StatusSnapshot struct {
	Agents []*model.Agent `json:"agents"`
	Tasks  []*model.Task  `json:"tasks"`
	Stats  StatusStats    `json:"stats"`
}

// StatusStats summarizes fleet counts.
type StatusStats struct {
	TotalAgents int `json:"total_agents"`
	TotalTasks  int `json:"total_tasks"`
}

// Status handles GET /status?agent_status=&task_status=.
type Status struct {
	cache *cache.Cache
}

// NewStatus returns a Status handler.
func NewStatus(c *cache.Cache) *Status {
	return &Status{cache: c}
}

func (h *Status) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var agents []*model.Agent
	if s := q.Get("agent_status"); s != "" {
		agents = h.cache.GetAgentsByStatus(model.AgentStatus(s))
	} else {
		agents = h.cache.GetAllAgents()
	}

	var tasks []*model.Task
	if s := q.Get("task_status"); s != "" {
		tasks = h.cache.GetTasksByStatus(model.TaskStatus(s))
	} else {
		tasks = h.cache.GetAllTasks()
	}

	WriteJSON(w, http.StatusOK, StatusSnapshot{
		Agents: agents,
		Tasks:  tasks,
		Stats: StatusStats{
			TotalAgents: len(agents),
			TotalTasks:  len(tasks),
		},
	})
}
