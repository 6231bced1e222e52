// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/model"
)

type fakeReloader struct {
	agents   []*model.Agent
	tasks    []*model.Task
	sessions []*model.Session
}

func (f *fakeReloader) ListAgents() ([]*model.Agent, error)     { return f.agents, nil }
func (f *fakeReloader) ListTasks() ([]*model.Task, error)       { return f.tasks, nil }
func (f *fakeReloader) ListSessions() ([]*model.Session, error) { return f.sessions, nil }

func TestCache_SetGetDelete(t *testing.T) {
	c := New()

	a := &model.Agent{ID: "a1", Status: model.AgentStatusIdle}
	c.SetAgent(a)

	got, ok := c.GetAgent("a1")
	require.True(t, ok)
	assert.Equal(t, model.AgentStatusIdle, got.Status)

	// Mutating the returned copy must not affect the cache.
	got.Status = model.AgentStatusBusy
	got2, _ := c.GetAgent("a1")
	assert.Equal(t, model.AgentStatusIdle, got2.Status)

	c.DeleteAgent("a1")
	_, ok = c.GetAgent("a1")
	assert.False(t, ok)
}

func TestCache_GetByStatus(t *testing.T) {
	c := New()
	c.SetTask(&model.Task{ID: "t1", Status: model.TaskStatusPending})
	c.SetTask(&model.Task{ID: "t2", Status: model.TaskStatusRunning})
	c.SetTask(&model.Task{ID: "t3", Status: model.TaskStatusPending})

	pending := c.GetTasksByStatus(model.TaskStatusPending)
	assert.Len(t, pending, 2)
}

func TestCache_GetSessionsByAgent(t *testing.T) {
	c := New()
	c.SetSession(&model.Session{ID: "s1", AgentID: "a1"})
	c.SetSession(&model.Session{ID: "s2", AgentID: "a2"})
	c.SetSession(&model.Session{ID: "s3", AgentID: "a1"})

	sessions := c.GetSessionsByAgent("a1")
	assert.Len(t, sessions, 2)
}

func TestCache_RebuildFromStore(t *testing.T) {
	c := New()
	c.SetAgent(&model.Agent{ID: "stale", Status: model.AgentStatusIdle})

	now := time.Now()
	reloader := &fakeReloader{
		agents:   []*model.Agent{{ID: "a1", Status: model.AgentStatusBusy, CreatedAt: now}},
		tasks:    []*model.Task{{ID: "t1", Status: model.TaskStatusRunning, CreatedAt: now}},
		sessions: []*model.Session{{ID: "s1", AgentID: "a1", StartedAt: now}},
	}

	require.NoError(t, c.RebuildFromStore(reloader))

	_, ok := c.GetAgent("stale")
	assert.False(t, ok, "rebuild must discard entries not present in the store")

	got, ok := c.GetAgent("a1")
	require.True(t, ok)
	assert.Equal(t, model.AgentStatusBusy, got.Status)

	_, ok = c.GetTask("t1")
	assert.True(t, ok)
	_, ok = c.GetSession("s1")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := New()
	c.SetAgent(&model.Agent{ID: "a1"})
	c.SetTask(&model.Task{ID: "t1"})
	c.SetSession(&model.Session{ID: "s1"})

	c.Clear()

	assert.Empty(t, c.GetAllAgents())
	assert.Empty(t, c.GetAllTasks())
	assert.Empty(t, c.GetSessionsByAgent("a1"))
}
