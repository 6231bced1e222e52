// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package cliadapter

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/multiplexer"
)

// ansiEscape matches terminal control sequences so captured scrollback can
// be reduced to plain text before it is treated as a task result.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// base implements the driver-facing plumbing shared by every tool variant:
// spawning via the multiplexer, sending keys, capturing output, and the
// sendPrompt state machine. Variants supply only their identity (name,
// readiness markers, startup timeout, install instructions, start
// command).
type base struct {
	driver          multiplexer.Driver
	log             zerolog.Logger
	toolName        string
	readyMarkers    []string
	startupTimeout  time.Duration
	startCommand    []string
	installInstr    string
}

func (b *base) CheckInstalled(ctx context.Context) bool {
	return b.driver.IsAvailable(ctx)
}

func (b *base) GetInstallInstructions() string {
	return b.installInstr
}

// SpawnProcess starts the tool's CLI in the target pane and waits for one
// of the tool's readiness markers to appear, bounded by the variant's
// startup timeout.
func (b *base) SpawnProcess(ctx context.Context, sessionName string, cfg SpawnConfig) error {
	args := append([]string{}, b.startCommand...)
	args = append(args, cfg.Args...)
	if err := b.driver.SendKeys(ctx, sessionName, strings.Join(args, " ")); err != nil {
		return err
	}

	deadline := time.Now().Add(b.startupTimeout)
	for time.Now().Before(deadline) {
		out, err := b.driver.CaptureOutput(ctx, sessionName, 200)
		if err != nil {
			return err
		}
		lower := strings.ToLower(out)
		for _, marker := range b.readyMarkers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return &ErrorTimeout{TimeoutMs: int(b.startupTimeout.Milliseconds())}
}

func (b *base) SendCommand(ctx context.Context, sessionName, raw string) error {
	return b.driver.SendKeys(ctx, sessionName, raw)
}

func (b *base) GetOutput(ctx context.Context, sessionName string, lines int) (string, error) {
	out, err := b.driver.CaptureOutput(ctx, sessionName, lines)
	if err != nil {
		return "", err
	}
	return stripANSI(out), nil
}

// IsIdle compares two captures separated by a short interval; unchanging
// output is the adapter's idleness signal.
func (b *base) IsIdle(ctx context.Context, sessionName string) (bool, error) {
	first, err := b.driver.CaptureOutput(ctx, sessionName, 50)
	if err != nil {
		return false, err
	}
	time.Sleep(200 * time.Millisecond)
	second, err := b.driver.CaptureOutput(ctx, sessionName, 50)
	if err != nil {
		return false, err
	}
	return first == second, nil
}

// Terminate sends the tool's graceful-exit sequence: Ctrl-C, then /exit.
// It does not wait for the pane to clear and does not kill the session.
func (b *base) Terminate(ctx context.Context, sessionName string) error {
	_ = b.driver.SendKeys(ctx, sessionName, "\x03") // Ctrl-C
	return b.driver.SendKeys(ctx, sessionName, "/exit")
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// sendPrompt drives the PREP → TYPING → AWAITING → STABILIZING →
// DONE|TIMEOUT|ERROR state machine spec §4.2 describes.
func (b *base) sendPrompt(ctx context.Context, sessionName, prompt string, cfg PromptConfig) PromptResult {
	start := time.Now()

	pollInterval := defaultDuration(cfg.PollIntervalMs, 500)
	idleThreshold := defaultDuration(cfg.IdleThresholdMs, 2000)
	timeout := defaultDuration(cfg.TimeoutMs, 120_000)
	deadline := start.Add(timeout)

	// PREP
	initial, err := b.driver.CaptureOutput(ctx, sessionName, 10_000)
	if err != nil {
		return PromptResult{Err: &ErrorPaneGone{SessionName: sessionName}, DurationMs: time.Since(start).Milliseconds()}
	}
	l0 := lineCount(initial)

	// TYPING
	if err := b.driver.SendKeys(ctx, sessionName, prompt); err != nil {
		return PromptResult{Err: err, DurationMs: time.Since(start).Milliseconds()}
	}

	// AWAITING + STABILIZING
	var lastOutput string
	var lastGrowth time.Time
	growing := false

	for {
		if time.Now().After(deadline) {
			return PromptResult{Err: &ErrorTimeout{TimeoutMs: int(timeout.Milliseconds())}, DurationMs: time.Since(start).Milliseconds()}
		}

		current, err := b.driver.CaptureOutput(ctx, sessionName, 10_000)
		if err != nil {
			return PromptResult{Err: &ErrorPaneGone{SessionName: sessionName}, DurationMs: time.Since(start).Milliseconds()}
		}

		if marker, found := containsHardError(current); found {
			return PromptResult{Err: &ErrorHardFailure{Marker: marker}, DurationMs: time.Since(start).Milliseconds()}
		}

		currentLines := lineCount(current)
		if currentLines > l0 {
			if current != lastOutput {
				lastOutput = current
				lastGrowth = time.Now()
				growing = true
			} else if growing && time.Since(lastGrowth) >= idleThreshold {
				output := stripANSI(deltaSince(current, l0))
				return PromptResult{Success: true, Output: output, DurationMs: time.Since(start).Milliseconds()}
			}
		}

		select {
		case <-ctx.Done():
			return PromptResult{Err: ctx.Err(), DurationMs: time.Since(start).Milliseconds()}
		case <-time.After(pollInterval):
		}
	}
}

func containsHardError(output string) (string, bool) {
	lower := strings.ToLower(output)
	for _, marker := range hardErrorMarkers {
		if strings.Contains(lower, marker) {
			return marker, true
		}
	}
	return "", false
}

// deltaSince returns the scrollback lines from index l0 onward.
func deltaSince(s string, l0 int) string {
	lines := strings.Split(s, "\n")
	if l0 >= len(lines) {
		return ""
	}
	return strings.Join(lines[l0:], "\n")
}
