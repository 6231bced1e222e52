// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package forker clones a running AI session into a fresh pane, carrying
// enough scrollback context that the new pane can continue the
// conversation. It generalizes the teacher's internal/claude/manager.go
// ImportSession path (clone conversation history into a new session) to
// operate over raw terminal scrollback instead of a structured transcript,
// since MindMux has no direct API into each CLI tool's conversation state.
package forker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/multiplexer"
)

const (
	maxScrollbackLines = 10_000
	maxPrologueChars   = 4000
	fallbackTurnCount  = 10
	readyPollInterval  = 500 * time.Millisecond
)

// Turn is one parsed line of conversation history.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Result is what Fork returns on success.
type Result struct {
	NewPaneID string
	Prologue  string
}

// Forker clones a pane's running AI session into a fresh split pane.
type Forker struct {
	driver multiplexer.Driver
	log    zerolog.Logger
}

// New returns a Forker driving the given multiplexer.
func New(driver multiplexer.Driver, log zerolog.Logger) *Forker {
	return &Forker{driver: driver, log: log.With().Str("component", "forker").Logger()}
}

// Fork executes the clone protocol: capture scrollback, parse it into
// turns, build a context prologue, split the pane, start the tool, wait
// for readiness, and send the prologue as the new session's first prompt.
// On any failure after the split it sends Ctrl-C to the new pane and
// returns the error rather than leaving a half-started pane behind.
func (f *Forker) Fork(ctx context.Context, sourcePaneID string, adapter cliadapter.Adapter, readyTimeout time.Duration) (*Result, error) {
	scrollback, err := f.driver.CaptureOutput(ctx, sourcePaneID, maxScrollbackLines)
	if err != nil {
		return nil, fmt.Errorf("forker: capture source pane: %w", err)
	}

	turns := parseTurns(scrollback)
	prologue := buildPrologue(turns)

	newPaneID, err := f.driver.SplitPane(ctx, sourcePaneID, true)
	if err != nil {
		return nil, fmt.Errorf("forker: split pane: %w", err)
	}

	if err := adapter.SpawnProcess(ctx, newPaneID, cliadapter.SpawnConfig{}); err != nil {
		f.abort(ctx, newPaneID)
		return nil, fmt.Errorf("forker: spawn cli in forked pane: %w", err)
	}

	if err := f.waitReady(ctx, adapter, newPaneID, readyTimeout); err != nil {
		f.abort(ctx, newPaneID)
		return nil, err
	}

	result := adapter.SendPrompt(ctx, newPaneID, prologue, cliadapter.PromptConfig{})
	if result.Err != nil {
		f.abort(ctx, newPaneID)
		return nil, fmt.Errorf("forker: send context prologue: %w", result.Err)
	}

	return &Result{NewPaneID: newPaneID, Prologue: prologue}, nil
}

func (f *Forker) waitReady(ctx context.Context, adapter cliadapter.Adapter, paneID string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		idle, err := adapter.IsIdle(ctx, paneID)
		if err == nil && idle {
			return nil
		}
		if time.Now().After(deadline) {
			return &cliadapter.ErrorTimeout{TimeoutMs: int(timeout.Milliseconds())}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

func (f *Forker) abort(ctx context.Context, paneID string) {
	if err := f.driver.SendKeys(ctx, paneID, "\x03"); err != nil {
		f.log.Warn().Err(err).Str("pane", paneID).Msg("forker: failed to abort forked pane")
	}
}

// parseTurns splits captured scrollback into alternating user/assistant
// turns using line-leading markers.
func parseTurns(scrollback string) []Turn {
	var turns []Turn
	for _, line := range strings.Split(scrollback, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, ">"):
			turns = append(turns, Turn{Role: "user", Text: strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))})
		case strings.HasPrefix(trimmed, "User:"):
			turns = append(turns, Turn{Role: "user", Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "User:"))})
		case strings.HasPrefix(trimmed, "AI:"):
			turns = append(turns, Turn{Role: "assistant", Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "AI:"))})
		case strings.HasPrefix(trimmed, "Assistant:"):
			turns = append(turns, Turn{Role: "assistant", Text: strings.TrimSpace(strings.TrimPrefix(trimmed, "Assistant:"))})
		default:
			if len(turns) > 0 {
				turns[len(turns)-1].Text += " " + trimmed
			}
		}
	}
	return turns
}

// buildPrologue renders turns into a context-setting prompt for the new
// pane. The full history is used when it fits in maxPrologueChars;
// otherwise only the last fallbackTurnCount turns are kept, and that
// fallback is not truncated further.
func buildPrologue(turns []Turn) string {
	full := renderTurns(turns)
	if len(full) <= maxPrologueChars {
		return full
	}

	recent := turns
	if len(recent) > fallbackTurnCount {
		recent = recent[len(recent)-fallbackTurnCount:]
	}
	return "Recent conversation:\n" + renderTurns(recent)
}

func renderTurns(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}
