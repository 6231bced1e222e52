// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package cliadapter

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/multiplexer"
)

// ClaudeAdapter drives the Claude Code CLI.
type ClaudeAdapter struct{ base }

// NewClaudeAdapter constructs the Claude variant (spec §4.2: readiness
// markers "claude"/">>>", 5 s startup timeout).
func NewClaudeAdapter(driver multiplexer.Driver, log zerolog.Logger) *ClaudeAdapter {
	return &ClaudeAdapter{base{
		driver:         driver,
		log:            log.With().Str("component", "cliadapter").Str("tool", "claude").Logger(),
		toolName:       "claude",
		readyMarkers:   []string{"claude", ">>>"},
		startupTimeout: 5 * time.Second,
		startCommand:   []string{"claude"},
		installInstr:   "Install the Claude Code CLI: https://docs.anthropic.com/claude-code",
	}}
}

func (a *ClaudeAdapter) SendPrompt(ctx context.Context, sessionName, prompt string, cfg PromptConfig) PromptResult {
	return a.sendPrompt(ctx, sessionName, prompt, cfg)
}

// GeminiAdapter drives the Gemini CLI.
type GeminiAdapter struct{ base }

// NewGeminiAdapter constructs the Gemini variant (spec §4.2: readiness
// markers "gemini"/">", 3 s startup timeout).
func NewGeminiAdapter(driver multiplexer.Driver, log zerolog.Logger) *GeminiAdapter {
	return &GeminiAdapter{base{
		driver:         driver,
		log:            log.With().Str("component", "cliadapter").Str("tool", "gemini").Logger(),
		toolName:       "gemini",
		readyMarkers:   []string{"gemini", ">"},
		startupTimeout: 3 * time.Second,
		startCommand:   []string{"gemini"},
		installInstr:   "Install the Gemini CLI: npm install -g @google/gemini-cli",
	}}
}

func (a *GeminiAdapter) SendPrompt(ctx context.Context, sessionName, prompt string, cfg PromptConfig) PromptResult {
	return a.sendPrompt(ctx, sessionName, prompt, cfg)
}

// OpenCodeAdapter drives the OpenCode CLI; also used for gpt4 agents.
type OpenCodeAdapter struct{ base }

// NewOpenCodeAdapter constructs the OpenCode variant (spec §4.2: readiness
// markers "opencode"/"ready", 4 s startup timeout).
func NewOpenCodeAdapter(driver multiplexer.Driver, log zerolog.Logger) *OpenCodeAdapter {
	return &OpenCodeAdapter{base{
		driver:         driver,
		log:            log.With().Str("component", "cliadapter").Str("tool", "opencode").Logger(),
		toolName:       "opencode",
		readyMarkers:   []string{"opencode", "ready"},
		startupTimeout: 4 * time.Second,
		startCommand:   []string{"opencode"},
		installInstr:   "Install OpenCode: https://opencode.ai/install",
	}}
}

func (a *OpenCodeAdapter) SendPrompt(ctx context.Context, sessionName, prompt string, cfg PromptConfig) PromptResult {
	return a.sendPrompt(ctx, sessionName, prompt, cfg)
}

// ForType returns the adapter variant for an agent type, with gpt4 mapped
// onto OpenCode per spec §4.2.
func ForType(agentType string, driver multiplexer.Driver, log zerolog.Logger) Adapter {
	switch agentType {
	case "claude":
		return NewClaudeAdapter(driver, log)
	case "gemini":
		return NewGeminiAdapter(driver, log)
	case "opencode", "gpt4":
		return NewOpenCodeAdapter(driver, log)
	default:
		return NewOpenCodeAdapter(driver, log)
	}
}
