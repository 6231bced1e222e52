// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"time"

	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/model"
)

// tryDispatch runs one scheduling pass: it takes every eligible pending
// task in priority order and assigns it to the best available agent,
// transitioning both inside the same critical section before releasing
// each pair to its own dispatch goroutine (spec §4.7, §5).
func (s *Scheduler) tryDispatch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := sortedEligibleTasks(s.cache.GetAllTasks())
	if len(tasks) == 0 {
		return
	}
	agents := s.cache.GetAllAgents()

	claimed := make(map[string]bool)
	for _, task := range tasks {
		agent := pickAgent(agents, task.RequiredCapabilities, claimed)
		if agent == nil {
			continue
		}
		session := s.activeSessionName(agent.ID)
		if session == "" {
			continue
		}
		claimed[agent.ID] = true
		s.assign(task, agent, session)
	}
}

// activeSessionName returns the multiplexer target for an agent's active
// session, or "" if it has none (an agent with no live pane can never be
// a dispatch candidate).
func (s *Scheduler) activeSessionName(agentID string) string {
	for _, sess := range s.cache.GetSessionsByAgent(agentID) {
		if sess.Status == model.SessionStatusActive {
			return sess.MultiplexerSessionName
		}
	}
	return ""
}

// assign transitions task and agent state together, persists both, and
// hands execution off to runTask. Must be called with s.mu held.
func (s *Scheduler) assign(task *model.Task, agent *model.Agent, sessionName string) {
	now := time.Now()
	task.Status = model.TaskStatusRunning
	task.AssignedAgentID = agent.ID
	task.StartedAt = &now

	agent.Status = model.AgentStatusBusy
	agent.LifetimeDispatched++
	agent.UpdatedAt = now

	if err := s.store.UpdateTask(task); err != nil {
		s.log.Error().Err(err).Str("task_id", task.ID).Msg("scheduler: persist running task failed")
		return
	}
	if err := s.store.UpdateAgent(agent); err != nil {
		s.log.Error().Err(err).Str("agent_id", agent.ID).Msg("scheduler: persist busy agent failed")
		return
	}
	s.cache.SetTask(task)
	s.cache.SetAgent(agent)

	s.publish(events.EventTaskAssigned, map[string]interface{}{
		"task_id":  task.ID,
		"agent_id": agent.ID,
	})
	s.publish(events.EventAgentStatusChanged, map[string]interface{}{
		"agent_id": agent.ID,
		"status":   string(agent.Status),
	})

	taskCtx, cancel := context.WithTimeout(context.Background(), time.Duration(task.TimeoutMs)*time.Millisecond)
	s.cancelFuncs[task.ID] = cancel

	taskID, agentID, promptTimeoutMs := task.ID, agent.ID, task.TimeoutMs
	prompt := task.Prompt
	agentType := agent.Type

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		adapter := s.adapterFor(agentType)
		result := adapter.SendPrompt(taskCtx, sessionName, prompt, cliadapter.PromptConfig{TimeoutMs: promptTimeoutMs})
		s.completeTask(taskID, agentID, result)
	}()
}

// completeTask applies a dispatch goroutine's outcome: success marks the
// task completed and frees the agent; failure either requeues the task
// for retry or marks it permanently failed, per spec §4.7 step 6.
func (s *Scheduler) completeTask(taskID, agentID string, result cliadapter.PromptResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cancelFuncs, taskID)

	task, ok := s.cache.GetTask(taskID)
	if !ok {
		return
	}
	// CancelTask already recorded the cancellation and freed the agent.
	if task.Status == model.TaskStatusCancelled {
		return
	}
	agent, agentOK := s.cache.GetAgent(agentID)

	now := time.Now()
	if result.Err == nil && result.Success {
		task.Status = model.TaskStatusCompleted
		task.Result = result.Output
		task.CompletedAt = &now
		s.publish(events.EventTaskCompleted, map[string]interface{}{
			"task_id":     task.ID,
			"duration_ms": result.DurationMs,
		})
	} else {
		errMsg := "dispatch failed"
		if result.Err != nil {
			errMsg = result.Err.Error()
		}
		if task.RetryCount < task.MaxRetries {
			task.RetryCount++
			task.Status = model.TaskStatusPending
			task.AssignedAgentID = ""
			task.StartedAt = nil
			task.ErrorMessage = errMsg
			s.publish(events.EventTaskQueued, map[string]interface{}{
				"task_id": task.ID,
				"retry":   task.RetryCount,
			})
		} else {
			task.Status = model.TaskStatusFailed
			task.ErrorMessage = errMsg
			task.CompletedAt = &now
			s.publish(events.EventTaskFailed, map[string]interface{}{
				"task_id": task.ID,
				"error":   errMsg,
			})
		}
	}

	if err := s.store.UpdateTask(task); err != nil {
		s.log.Error().Err(err).Str("task_id", task.ID).Msg("scheduler: persist task completion failed")
	}
	s.cache.SetTask(task)

	if agentOK {
		agent.Status = model.AgentStatusIdle
		agent.UpdatedAt = now
		if err := s.store.UpdateAgent(agent); err != nil {
			s.log.Error().Err(err).Str("agent_id", agent.ID).Msg("scheduler: persist freed agent failed")
		}
		s.cache.SetAgent(agent)
		s.publish(events.EventAgentStatusChanged, map[string]interface{}{
			"agent_id": agent.ID,
			"status":   string(agent.Status),
		})
	}
}
