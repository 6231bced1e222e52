// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/forker"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/multiplexer"
	"github.com/khuongdo/mindmux/internal/scheduler"
	"github.com/khuongdo/mindmux/internal/store"
)

// DefaultReadyTimeout bounds how long Start waits for a freshly spawned
// CLI to report itself idle before giving up (spec §4.2 PREP state).
const DefaultReadyTimeout = 30 * time.Second

// AgentLifecycle binds an agent's store/cache record to a live
// multiplexer pane: starting a session spawns the CLI process, stopping
// one terminates it. Grounded on the teacher's internal/service.Manager
// (StartService/StopService bracketing a managed subprocess), generalized
// from one long-lived daemon per service to one CLI process per pane.
type AgentLifecycle struct {
	store      *store.Store
	cache      *cache.Cache
	driver     multiplexer.Driver
	adapterFor scheduler.AdapterFactory
	bus        events.EventBus
	forker     *forker.Forker
	log        zerolog.Logger
}

// NewAgentLifecycle returns an AgentLifecycle.
func NewAgentLifecycle(st *store.Store, c *cache.Cache, driver multiplexer.Driver, adapterFor scheduler.AdapterFactory, bus events.EventBus, log zerolog.Logger) *AgentLifecycle {
	return &AgentLifecycle{
		store:      st,
		cache:      c,
		driver:     driver,
		adapterFor: adapterFor,
		bus:        bus,
		forker:     forker.New(driver, log),
		log:        log.With().Str("component", "agent_lifecycle").Logger(),
	}
}

// Start creates a multiplexer session, spawns the agent's CLI inside it,
// and records the binding as a Session. The agent must be idle and have
// no existing active session.
func (l *AgentLifecycle) Start(ctx context.Context, agentID, workDir string) (*model.Session, error) {
	agent, ok := l.cache.GetAgent(agentID)
	if !ok {
		return nil, model.NewNotFoundError("agent", agentID)
	}
	if agent.Status != model.AgentStatusIdle {
		return nil, model.NewValidationError("status", "agent is not idle")
	}
	if existing := l.cache.GetSessionsByAgent(agentID); len(existing) > 0 {
		for _, s := range existing {
			if s.Status == model.SessionStatusActive {
				return nil, model.NewValidationError("agent", "agent already has an active session")
			}
		}
	}

	sessionName := fmt.Sprintf("mindmux-%s", agent.ID)
	if err := l.driver.CreateSession(ctx, sessionName, workDir); err != nil {
		return nil, fmt.Errorf("agent lifecycle: create session: %w", err)
	}

	adapter := l.adapterFor(agent.Type)
	if err := adapter.SpawnProcess(ctx, sessionName, cliadapter.SpawnConfig{WorkDir: workDir}); err != nil {
		_ = l.driver.KillSession(ctx, sessionName)
		return nil, fmt.Errorf("agent lifecycle: spawn process: %w", err)
	}

	if err := l.waitIdle(ctx, adapter, sessionName, DefaultReadyTimeout); err != nil {
		_ = adapter.Terminate(ctx, sessionName)
		_ = l.driver.KillSession(ctx, sessionName)
		return nil, err
	}

	sess := &model.Session{
		ID:                     uuid.NewString(),
		AgentID:                agent.ID,
		MultiplexerSessionName: sessionName,
		Status:                 model.SessionStatusActive,
		StartedAt:              time.Now(),
	}
	if err := l.store.InsertSession(sess); err != nil {
		return nil, fmt.Errorf("agent lifecycle: persist session: %w", err)
	}
	l.cache.SetSession(sess)

	agent.Status = model.AgentStatusIdle
	agent.UpdatedAt = time.Now()
	if err := l.store.UpdateAgent(agent); err != nil {
		return nil, fmt.Errorf("agent lifecycle: update agent: %w", err)
	}
	l.cache.SetAgent(agent)

	l.publish(events.EventAgentStatusChanged, map[string]interface{}{
		"agent_id": agent.ID,
		"status":   string(agent.Status),
		"session":  sess.ID,
	})
	return sess, nil
}

// Fork clones a running agent's active session into a freshly registered
// agent bound to a new pane, carrying scrollback context across so the
// clone can continue the conversation (spec §4.9 agent:fork).
func (l *AgentLifecycle) Fork(ctx context.Context, sourceAgentID, newName string) (*model.Agent, *model.Session, error) {
	source, ok := l.cache.GetAgent(sourceAgentID)
	if !ok {
		return nil, nil, model.NewNotFoundError("agent", sourceAgentID)
	}

	var sourceSession *model.Session
	for _, sess := range l.cache.GetSessionsByAgent(sourceAgentID) {
		if sess.Status == model.SessionStatusActive {
			sourceSession = sess
			break
		}
	}
	if sourceSession == nil {
		return nil, nil, model.NewValidationError("agent", "agent has no active session to fork")
	}

	if newName == "" {
		newName = source.Name + "-fork"
	}
	if err := model.ValidateNewAgent(newName, source.Type, source.Capabilities); err != nil {
		return nil, nil, err
	}

	adapter := l.adapterFor(source.Type)
	result, err := l.forker.Fork(ctx, sourceSession.MultiplexerSessionName, adapter, DefaultReadyTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("agent lifecycle: fork: %w", err)
	}

	now := time.Now()
	newAgent := &model.Agent{
		ID:           uuid.NewString(),
		Name:         newName,
		Type:         source.Type,
		Capabilities: source.Capabilities,
		Status:       model.AgentStatusIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.InsertAgent(newAgent); err != nil {
		return nil, nil, fmt.Errorf("agent lifecycle: persist forked agent: %w", err)
	}
	l.cache.SetAgent(newAgent)

	newSession := &model.Session{
		ID:                     uuid.NewString(),
		AgentID:                newAgent.ID,
		MultiplexerSessionName: result.NewPaneID,
		Status:                 model.SessionStatusActive,
		StartedAt:              now,
	}
	if err := l.store.InsertSession(newSession); err != nil {
		return nil, nil, fmt.Errorf("agent lifecycle: persist forked session: %w", err)
	}
	l.cache.SetSession(newSession)

	l.publish(events.EventAgentStatusChanged, map[string]interface{}{
		"agent_id":       newAgent.ID,
		"status":         string(newAgent.Status),
		"session":        newSession.ID,
		"forked_from":    sourceAgentID,
		"source_session": sourceSession.ID,
	})
	return newAgent, newSession, nil
}

// Stop terminates the agent's active session, if any, and marks the
// agent stopped.
func (l *AgentLifecycle) Stop(ctx context.Context, agentID string) error {
	agent, ok := l.cache.GetAgent(agentID)
	if !ok {
		return model.NewNotFoundError("agent", agentID)
	}

	for _, sess := range l.cache.GetSessionsByAgent(agentID) {
		if sess.Status != model.SessionStatusActive {
			continue
		}
		adapter := l.adapterFor(agent.Type)
		_ = adapter.Terminate(ctx, sess.MultiplexerSessionName)
		_ = l.driver.KillSession(ctx, sess.MultiplexerSessionName)

		now := time.Now()
		sess.Status = model.SessionStatusEnded
		sess.EndedAt = &now
		if err := l.store.UpdateSession(sess); err != nil {
			return fmt.Errorf("agent lifecycle: end session: %w", err)
		}
		l.cache.SetSession(sess)
	}

	agent.Status = model.AgentStatusStopped
	agent.UpdatedAt = time.Now()
	if err := l.store.UpdateAgent(agent); err != nil {
		return fmt.Errorf("agent lifecycle: update agent: %w", err)
	}
	l.cache.SetAgent(agent)

	l.publish(events.EventAgentStatusChanged, map[string]interface{}{
		"agent_id": agent.ID,
		"status":   string(agent.Status),
	})
	return nil
}

// Delete stops the agent if running, then removes it from durable
// storage and cache.
func (l *AgentLifecycle) Delete(ctx context.Context, agentID string) error {
	agent, ok := l.cache.GetAgent(agentID)
	if !ok {
		return model.NewNotFoundError("agent", agentID)
	}
	if agent.Status != model.AgentStatusStopped {
		if err := l.Stop(ctx, agentID); err != nil {
			return err
		}
	}
	if err := l.store.DeleteAgent(agentID); err != nil {
		return fmt.Errorf("agent lifecycle: delete agent: %w", err)
	}
	l.cache.DeleteAgent(agentID)
	return nil
}

func (l *AgentLifecycle) publish(eventType string, payload map[string]interface{}) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(context.Background(), events.Event{Type: eventType, Payload: payload}); err != nil {
		l.log.Warn().Err(err).Str("event_type", eventType).Msg("agent lifecycle: publish failed")
	}
}

func (l *AgentLifecycle) waitIdle(ctx context.Context, adapter cliadapter.Adapter, sessionName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		idle, err := adapter.IsIdle(ctx, sessionName)
		if err == nil && idle {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("agent lifecycle: %s did not become ready within %s", sessionName, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

const readyPollInterval = 500 * time.Millisecond
