// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// MaxPromptBytes is the boundary spec §8 names: prompts larger than this
// are rejected with a ValidationError before they ever reach the scheduler.
const MaxPromptBytes = 100 * 1024

// TaskStatus is the lifecycle state of a scheduled unit of work.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task is a unit of work (a prompt plus capability/priority/dependency
// constraints) scheduled onto an agent.
type Task struct {
	ID                   string
	Prompt               string
	RequiredCapabilities []Capability
	Priority             int
	Status               TaskStatus
	AssignedAgentID      string
	DependsOn            []string
	CreatedAt            time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
	Result               string
	ErrorMessage         string
	RetryCount           int
	MaxRetries           int
	TimeoutMs            int
}

// DefaultTimeoutMs is used when a caller does not specify one.
const DefaultTimeoutMs = 120_000

// DefaultMaxRetries is used when a caller does not specify one.
const DefaultMaxRetries = 0

// ValidateNewTask checks a task's fields at creation time, including the
// DAG-ness of dependsOn against the rest of the known task graph (spec
// §11 supplement: cycle rejection happens at create time, not only as a
// scheduling-time invariant).
func ValidateNewTask(prompt string, requiredCapabilities []Capability, dependsOn []string, maxRetries int, existing map[string][]string) error {
	if len(prompt) == 0 {
		return NewValidationError("prompt", "must not be empty")
	}
	if len(prompt) > MaxPromptBytes {
		return NewValidationError("prompt", "exceeds 100 KiB")
	}
	for _, c := range requiredCapabilities {
		if !IsValidCapability(c) {
			return NewValidationError("requiredCapabilities", "unknown capability: "+string(c))
		}
	}
	if maxRetries < 0 {
		return NewValidationError("maxRetries", "must be >= 0")
	}
	if len(dependsOn) > 0 {
		if err := checkAcyclic(dependsOn, existing); err != nil {
			return err
		}
	}
	return nil
}

// checkAcyclic walks the dependency graph formed by existing plus a new,
// not-yet-inserted node depending on dependsOn, failing if any cycle is
// reachable. existing maps a known task id to its own dependsOn list.
func checkAcyclic(dependsOn []string, existing map[string][]string) error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		if visiting[id] {
			return NewValidationError("dependsOn", "cyclic dependency detected at "+id)
		}
		if visited[id] {
			return nil
		}
		visiting[id] = true
		for _, dep := range existing[id] {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		visiting[id] = false
		visited[id] = true
		return nil
	}

	for _, dep := range dependsOn {
		if err := visit(dep, nil); err != nil {
			return err
		}
	}
	return nil
}

// IsEligible reports whether t may be picked up by the scheduler: pending,
// every dependency completed, and retries not exhausted (spec §4.7 step 1).
func (t *Task) IsEligible(depStatus func(id string) (TaskStatus, bool)) bool {
	if t.Status != TaskStatusPending {
		return false
	}
	if t.RetryCount > t.MaxRetries {
		return false
	}
	for _, dep := range t.DependsOn {
		status, ok := depStatus(dep)
		if !ok || status != TaskStatusCompleted {
			return false
		}
	}
	return true
}
