// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cliadapter is the polymorphic façade over the Multiplexer Driver
// that drives each kind of interactive AI CLI (spec §4.2). It generalizes
// the teacher's long-lived-subprocess-plus-output-watching model
// (internal/claude/claudecli.go, internal/service/process.go) to a
// one-process-per-tool-per-pane shape, layering the PREP → TYPING →
// AWAITING → STABILIZING → DONE|TIMEOUT|ERROR state machine spec.md
// describes on top of polling the driver's CaptureOutput.
package cliadapter

import (
	"context"
	"time"
)

// SpawnConfig carries the working directory and any tool-specific launch
// arguments needed to start a CLI inside a freshly created pane.
type SpawnConfig struct {
	WorkDir string
	Args    []string
}

// PromptConfig overrides the sendPrompt state machine's default timings.
// A zero value in any field means "use the adapter's default."
type PromptConfig struct {
	PollIntervalMs  int
	IdleThresholdMs int
	TimeoutMs       int
}

// PromptResult is what sendPrompt returns once the state machine reaches
// a terminal state.
type PromptResult struct {
	Success    bool
	Output     string
	DurationMs int64
	Err        error
}

// Adapter is the per-tool façade spec §4.2 names.
type Adapter interface {
	CheckInstalled(ctx context.Context) bool
	GetInstallInstructions() string
	SpawnProcess(ctx context.Context, sessionName string, cfg SpawnConfig) error
	SendPrompt(ctx context.Context, sessionName, prompt string, cfg PromptConfig) PromptResult
	SendCommand(ctx context.Context, sessionName, raw string) error
	IsIdle(ctx context.Context, sessionName string) (bool, error)
	GetOutput(ctx context.Context, sessionName string, lines int) (string, error)
	Terminate(ctx context.Context, sessionName string) error
}

// ErrorTimeout is returned by SendPrompt when the absolute deadline
// elapses before STABILIZING reaches DONE.
type ErrorTimeout struct {
	TimeoutMs int
}

func (e *ErrorTimeout) Error() string {
	return "cli adapter: prompt timed out"
}

// ErrorPaneGone is returned when the target pane no longer exists partway
// through the state machine.
type ErrorPaneGone struct {
	SessionName string
}

func (e *ErrorPaneGone) Error() string {
	return "cli adapter: pane " + e.SessionName + " disappeared"
}

// ErrorHardFailure is returned when captured output contains a hard error
// marker (traceback, fatal, explicit refusal).
type ErrorHardFailure struct {
	Marker string
}

func (e *ErrorHardFailure) Error() string {
	return "cli adapter: hard error marker observed: " + e.Marker
}

// hardErrorMarkers are substrings that end the state machine in ERROR
// regardless of which tool variant is running (spec §4.2).
var hardErrorMarkers = []string{"traceback", "fatal", "i cannot assist with that", "i can't help with that"}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func defaultDuration(ms, defMs int) time.Duration {
	return time.Duration(defaultInt(ms, defMs)) * time.Millisecond
}
