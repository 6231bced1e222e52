// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"regexp"
	"time"
)

// AgentType identifies which CLI Adapter variant drives an agent's pane.
type AgentType string

const (
	AgentTypeClaude   AgentType = "claude"
	AgentTypeGemini   AgentType = "gemini"
	AgentTypeOpenCode AgentType = "opencode"
	AgentTypeGPT4     AgentType = "gpt4"
)

var validAgentTypes = map[AgentType]bool{
	AgentTypeClaude:   true,
	AgentTypeGemini:   true,
	AgentTypeOpenCode: true,
	AgentTypeGPT4:     true,
}

// AgentStatus is the lifecycle state of a registered agent.
type AgentStatus string

const (
	AgentStatusIdle    AgentStatus = "idle"
	AgentStatusBusy    AgentStatus = "busy"
	AgentStatusError   AgentStatus = "error"
	AgentStatusStopped AgentStatus = "stopped"
)

// Capability is a named skill drawn from a closed vocabulary that a task
// requires and an agent advertises.
type Capability string

const (
	CapabilityCodeGeneration Capability = "code-generation"
	CapabilityCodeReview     Capability = "code-review"
	CapabilityDebugging      Capability = "debugging"
	CapabilityTesting        Capability = "testing"
	CapabilityDocumentation  Capability = "documentation"
	CapabilityRefactoring    Capability = "refactoring"
	CapabilityResearch       Capability = "research"
)

var validCapabilities = map[Capability]bool{
	CapabilityCodeGeneration: true,
	CapabilityCodeReview:     true,
	CapabilityDebugging:      true,
	CapabilityTesting:        true,
	CapabilityDocumentation:  true,
	CapabilityRefactoring:    true,
	CapabilityResearch:       true,
}

// IsValidCapability reports whether c belongs to the closed vocabulary.
func IsValidCapability(c Capability) bool {
	return validCapabilities[c]
}

var agentNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// Agent is a long-running external AI CLI under control of the
// orchestrator, bound at most once to a live multiplexer pane.
type Agent struct {
	ID           string
	Name         string
	Type         AgentType
	Capabilities []Capability
	Config       map[string]interface{}
	Status       AgentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// LifetimeDispatched counts tasks ever assigned to this agent; the
	// scheduler's load-balancing tie-break (spec §4.7 step 3) picks the
	// candidate agent with the lowest value here.
	LifetimeDispatched int64
}

// HasCapabilities reports whether the agent advertises every capability in
// required (the scheduler's candidate-set test, spec §4.7 step 2).
func (a *Agent) HasCapabilities(required []Capability) bool {
	have := make(map[Capability]bool, len(a.Capabilities))
	for _, c := range a.Capabilities {
		have[c] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}

// ValidateNewAgent checks the fields an admin/operator supplies when
// registering a new agent, before any id or timestamp is assigned.
func ValidateNewAgent(name string, agentType AgentType, capabilities []Capability) error {
	if !agentNamePattern.MatchString(name) {
		return NewValidationError("name", "must match [A-Za-z0-9_-]{1,255}")
	}
	if !validAgentTypes[agentType] {
		return NewValidationError("type", "unknown agent type")
	}
	if len(capabilities) == 0 {
		return NewValidationError("capabilities", "must not be empty")
	}
	seen := make(map[Capability]bool, len(capabilities))
	for _, c := range capabilities {
		if !IsValidCapability(c) {
			return NewValidationError("capabilities", "unknown capability: "+string(c))
		}
		if seen[c] {
			return NewValidationError("capabilities", "duplicate capability: "+string(c))
		}
		seen[c] = true
	}
	return nil
}
