// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package multiplexer wraps the external terminal-multiplexer binary
// (tmux) that hosts every agent's pane. Every operation is a thin
// subprocess wrapper, grounded on the teacher's RealTmuxExecutor
// (internal/terminal/tmux.go): build an argv, run it, capture stderr into
// the error. Unlike the teacher, pane and session names here arrive over
// HTTP from callers MindMux does not fully trust, so every interpolated
// value passes a shell-metacharacter denylist first (spec §4.1).
package multiplexer

import (
	"context"
	"fmt"
	"strings"
)

// Pane describes one tmux pane as the driver reports it.
type Pane struct {
	SessionName string
	WindowID    string
	PaneID      string
	WorkingDir  string
	ProcessName string
	PanePID     int
}

// Driver is the Multiplexer Driver's full interface (spec §4.1).
type Driver interface {
	ListSessions(ctx context.Context) ([]string, error)
	ListPanes(ctx context.Context, session string) ([]Pane, error)
	CreateSession(ctx context.Context, name, workDir string) error
	SplitPane(ctx context.Context, target string, horizontal bool) (string, error)
	SendKeys(ctx context.Context, paneID, text string) error
	CaptureOutput(ctx context.Context, paneID string, lineCount int) (string, error)
	GetWorkingDirectory(ctx context.Context, paneID string) (string, error)
	GetProcessName(ctx context.Context, paneID string) (string, error)
	KillSession(ctx context.Context, name string) error
	IsAvailable(ctx context.Context) bool
}

// MultiplexerError wraps a failed subprocess invocation with the argv that
// was run and the tail of its stderr, exactly as spec §4.1 requires.
type MultiplexerError struct {
	Argv           []string
	StderrTail     string
	Err            error
}

func (e *MultiplexerError) Error() string {
	return fmt.Sprintf("multiplexer command %v failed: %s: %v", e.Argv, e.StderrTail, e.Err)
}

func (e *MultiplexerError) Unwrap() error { return e.Err }

// shellMetacharacters is the denylist spec §4.1 names: `;&|$()<>'"\``.
const shellMetacharacters = `;&|$()<>'"\` + "`"

// ErrUnsafeInput is returned when a caller-supplied value contains a
// denylisted shell metacharacter.
type ErrUnsafeInput struct {
	Field string
	Value string
}

func (e *ErrUnsafeInput) Error() string {
	return fmt.Sprintf("%s contains a disallowed shell metacharacter: %q", e.Field, e.Value)
}

// validateShellSafe rejects any value containing a denylisted character
// before it is interpolated into a multiplexer subprocess argv.
func validateShellSafe(field, value string) error {
	if strings.ContainsAny(value, shellMetacharacters) {
		return &ErrUnsafeInput{Field: field, Value: value}
	}
	return nil
}

func stderrTail(stderr string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}
