// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cache implements MindMux's hot cache: three in-memory maps
// mirroring the durable store's agents, tasks, and sessions tables,
// mutated only from the scheduler's critical section and otherwise read
// freely (spec §4.4, §5). It generalizes the teacher's WindowStore
// pattern (mutex-guarded map, rebuilt from a backing file) to three
// entities rebuilt from a SQL store instead of JSON on disk.
package cache

import (
	"sync"

	"github.com/khuongdo/mindmux/internal/model"
)

// Reloader is the read side of the durable store the cache rebuilds from.
type Reloader interface {
	ListAgents() ([]*model.Agent, error)
	ListTasks() ([]*model.Task, error)
	ListSessions() ([]*model.Session, error)
}

// Cache is the hot, in-memory mirror of the durable store.
type Cache struct {
	mu       sync.RWMutex
	agents   map[string]*model.Agent
	tasks    map[string]*model.Task
	sessions map[string]*model.Session
}

// New returns an empty cache. Call RebuildFromStore once at startup before
// serving any request.
func New() *Cache {
	return &Cache{
		agents:   make(map[string]*model.Agent),
		tasks:    make(map[string]*model.Task),
		sessions: make(map[string]*model.Session),
	}
}

// GetAgent returns a copy of the cached agent, if present.
func (c *Cache) GetAgent(id string) (*model.Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// GetAllAgents returns a copy of every cached agent.
func (c *Cache) GetAllAgents() []*model.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Agent, 0, len(c.agents))
	for _, a := range c.agents {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// GetAgentsByStatus returns a copy of every cached agent with the given status.
func (c *Cache) GetAgentsByStatus(status model.AgentStatus) []*model.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Agent
	for _, a := range c.agents {
		if a.Status == status {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// SetAgent upserts an agent into the cache.
func (c *Cache) SetAgent(a *model.Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *a
	c.agents[a.ID] = &cp
}

// DeleteAgent removes an agent from the cache.
func (c *Cache) DeleteAgent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.agents, id)
}

// GetTask returns a copy of the cached task, if present.
func (c *Cache) GetTask(id string) (*model.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tasks[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// GetAllTasks returns a copy of every cached task.
func (c *Cache) GetAllTasks() []*model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// GetTasksByStatus returns a copy of every cached task with the given status.
func (c *Cache) GetTasksByStatus(status model.TaskStatus) []*model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Task
	for _, t := range c.tasks {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// SetTask upserts a task into the cache.
func (c *Cache) SetTask(t *model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *t
	c.tasks[t.ID] = &cp
}

// DeleteTask removes a task from the cache.
func (c *Cache) DeleteTask(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}

// GetSession returns a copy of the cached session, if present.
func (c *Cache) GetSession(id string) (*model.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// GetSessionsByAgent returns every session bound to the given agent id.
func (c *Cache) GetSessionsByAgent(agentID string) []*model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Session
	for _, s := range c.sessions {
		if s.AgentID == agentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out
}

// SetSession upserts a session into the cache.
func (c *Cache) SetSession(s *model.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.sessions[s.ID] = &cp
}

// DeleteSession removes a session from the cache.
func (c *Cache) DeleteSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}

// Clear empties all three maps.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = make(map[string]*model.Agent)
	c.tasks = make(map[string]*model.Task)
	c.sessions = make(map[string]*model.Session)
}

// RebuildFromStore empties all three maps, reads each table in full, and
// reconstructs entities (spec §4.4). Called once at startup and may be
// called defensively after a detected inconsistency.
func (c *Cache) RebuildFromStore(r Reloader) error {
	agents, err := r.ListAgents()
	if err != nil {
		return err
	}
	tasks, err := r.ListTasks()
	if err != nil {
		return err
	}
	sessions, err := r.ListSessions()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.agents = make(map[string]*model.Agent, len(agents))
	for _, a := range agents {
		c.agents[a.ID] = a
	}

	c.tasks = make(map[string]*model.Task, len(tasks))
	for _, t := range tasks {
		c.tasks[t.ID] = t
	}

	c.sessions = make(map[string]*model.Session, len(sessions))
	for _, s := range sessions {
		c.sessions[s.ID] = s
	}

	return nil
}
