// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package scheduler matches pending tasks to idle, capability-matched
// agents and drives their execution through a CLI Adapter (spec §4.7).
// It generalizes the teacher's RealRunner (internal/workflow/runner.go):
// a mutex-guarded map of in-flight work with stored context.CancelFuncs,
// a background ticker loop, and a goroutine-per-run execution model,
// applied here to many tasks dispatched across many agents instead of one
// workflow run at a time.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/cache"
	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/events"
	"github.com/khuongdo/mindmux/internal/model"
	"github.com/khuongdo/mindmux/internal/store"
)

// DefaultPollInterval is how often the dispatch loop looks for newly
// eligible work when Start is called without an override (spec §5).
const DefaultPollInterval = 200 * time.Millisecond

// AdapterFactory resolves the CLI Adapter variant for an agent type. In
// production this is cliadapter.ForType bound to a real multiplexer
// driver; tests supply a factory returning fakes.
type AdapterFactory func(agentType model.AgentType) cliadapter.Adapter

// Scheduler owns the task queue and agent pool and is the sole writer of
// task/agent state transitions (spec §5: "the scheduler's critical
// section is the only place task and agent state change together").
type Scheduler struct {
	mu sync.Mutex

	store      *store.Store
	cache      *cache.Cache
	bus        events.EventBus
	adapterFor AdapterFactory
	log        zerolog.Logger

	cancelFuncs map[string]context.CancelFunc // taskID -> in-flight cancel

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Scheduler. Call RebuildFromStore on cache before Start
// so the dispatch loop starts from durable state.
func New(st *store.Store, c *cache.Cache, bus events.EventBus, adapterFor AdapterFactory, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:       st,
		cache:       c,
		bus:         bus,
		adapterFor:  adapterFor,
		log:         log.With().Str("component", "scheduler").Logger(),
		cancelFuncs: make(map[string]context.CancelFunc),
		done:        make(chan struct{}),
	}
}

// Start launches the dispatch loop on its own goroutine. Stop must be
// called to release it.
func (s *Scheduler) Start(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.tryDispatch(ctx)
			}
		}
	}()
}

// Stop cancels every in-flight task dispatch and halts the loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.mu.Lock()
	for id, cancel := range s.cancelFuncs {
		cancel()
		delete(s.cancelFuncs, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// RegisterAgent validates and persists a new agent, idle by default.
func (s *Scheduler) RegisterAgent(name string, agentType model.AgentType, capabilities []model.Capability) (*model.Agent, error) {
	if err := model.ValidateNewAgent(name, agentType, capabilities); err != nil {
		return nil, err
	}

	now := time.Now()
	agent := &model.Agent{
		ID:           uuid.NewString(),
		Name:         name,
		Type:         agentType,
		Capabilities: capabilities,
		Config:       map[string]interface{}{},
		Status:       model.AgentStatusIdle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertAgent(agent); err != nil {
		return nil, fmt.Errorf("scheduler: persist agent: %w", err)
	}
	s.cache.SetAgent(agent)

	s.publish(events.EventAgentStatusChanged, map[string]interface{}{
		"agent_id": agent.ID,
		"status":   string(agent.Status),
	})

	return agent, nil
}

// SubmitTask validates and persists a new pending task.
func (s *Scheduler) SubmitTask(prompt string, requiredCapabilities []model.Capability, priority int, dependsOn []string, maxRetries, timeoutMs int) (*model.Task, error) {
	existing := s.dependencyGraph()

	if maxRetries < 0 {
		maxRetries = model.DefaultMaxRetries
	}
	if err := model.ValidateNewTask(prompt, requiredCapabilities, dependsOn, maxRetries, existing); err != nil {
		return nil, err
	}
	if timeoutMs <= 0 {
		timeoutMs = model.DefaultTimeoutMs
	}

	task := &model.Task{
		ID:                   uuid.NewString(),
		Prompt:               prompt,
		RequiredCapabilities: requiredCapabilities,
		Priority:             priority,
		Status:               model.TaskStatusPending,
		DependsOn:            dependsOn,
		CreatedAt:            time.Now(),
		MaxRetries:           maxRetries,
		TimeoutMs:            timeoutMs,
	}

	if err := s.store.InsertTask(task); err != nil {
		return nil, fmt.Errorf("scheduler: persist task: %w", err)
	}
	s.cache.SetTask(task)

	s.publish(events.EventTaskQueued, map[string]interface{}{
		"task_id":  task.ID,
		"priority": task.Priority,
	})

	return task, nil
}

func (s *Scheduler) dependencyGraph() map[string][]string {
	tasks := s.cache.GetAllTasks()
	graph := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		graph[t.ID] = t.DependsOn
	}
	return graph
}

// CancelTask transitions a pending or running task to cancelled. A
// running task's in-flight dispatch goroutine is cancelled via context;
// its agent is freed back to idle.
func (s *Scheduler) CancelTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.cache.GetTask(taskID)
	if !ok {
		return model.NewNotFoundError("task", taskID)
	}
	if task.Status != model.TaskStatusPending && task.Status != model.TaskStatusRunning {
		return model.NewValidationError("status", "task is not cancellable from state "+string(task.Status))
	}

	if cancel, ok := s.cancelFuncs[taskID]; ok {
		cancel()
		delete(s.cancelFuncs, taskID)
	}

	if task.Status == model.TaskStatusRunning && task.AssignedAgentID != "" {
		if agent, ok := s.cache.GetAgent(task.AssignedAgentID); ok && agent.Status == model.AgentStatusBusy {
			agent.Status = model.AgentStatusIdle
			agent.UpdatedAt = time.Now()
			if err := s.store.UpdateAgent(agent); err != nil {
				s.log.Warn().Err(err).Str("agent_id", agent.ID).Msg("scheduler: failed to free agent on cancel")
			}
			s.cache.SetAgent(agent)
		}
	}

	now := time.Now()
	task.Status = model.TaskStatusCancelled
	task.CompletedAt = &now
	if err := s.store.UpdateTask(task); err != nil {
		return fmt.Errorf("scheduler: persist cancelled task: %w", err)
	}
	s.cache.SetTask(task)

	s.publish(events.EventTaskCancelled, map[string]interface{}{"task_id": task.ID})
	return nil
}

func (s *Scheduler) publish(eventType string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("scheduler: publish failed")
	}
}

// sortedEligibleTasks returns pending, dependency-satisfied tasks ordered
// by descending priority then ascending creation time (spec §4.7 step 1).
func sortedEligibleTasks(tasks []*model.Task) []*model.Task {
	statusOf := make(map[string]model.TaskStatus, len(tasks))
	for _, t := range tasks {
		statusOf[t.ID] = t.Status
	}
	depStatus := func(id string) (model.TaskStatus, bool) {
		st, ok := statusOf[id]
		return st, ok
	}

	var eligible []*model.Task
	for _, t := range tasks {
		if t.Status == model.TaskStatusPending && t.IsEligible(depStatus) {
			eligible = append(eligible, t)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})
	return eligible
}

// pickAgent returns the lowest-lifetime-dispatched, then
// lexicographically-lowest-id idle agent able to cover requiredCaps
// (spec §4.7 steps 2-3). Agents already claimed this tick are excluded
// via the claimed set.
func pickAgent(agents []*model.Agent, requiredCaps []model.Capability, claimed map[string]bool) *model.Agent {
	var candidates []*model.Agent
	for _, a := range agents {
		if a.Status != model.AgentStatusIdle || claimed[a.ID] {
			continue
		}
		if a.HasCapabilities(requiredCaps) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].LifetimeDispatched != candidates[j].LifetimeDispatched {
			return candidates[i].LifetimeDispatched < candidates[j].LifetimeDispatched
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}
