// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package multiplexer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// TmuxDriver is the real Driver, shelling out to the tmux binary exactly
// the way the teacher's RealTmuxExecutor does.
type TmuxDriver struct{}

// NewTmuxDriver returns a Driver backed by the real tmux binary.
func NewTmuxDriver() *TmuxDriver {
	return &TmuxDriver{}
}

// filterTMUXEnv strips an ambient TMUX= variable so a child tmux
// invocation doesn't get confused about nesting, mirroring the teacher's
// helper of the same intent in internal/terminal/tmux.go.
func filterTMUXEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		if strings.HasPrefix(e, "TMUX=") {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (d *TmuxDriver) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Env = filterTMUXEnv(os.Environ())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, &MultiplexerError{Argv: append([]string{"tmux"}, args...), StderrTail: stderrTail(stderr.String(), 20), Err: err}
	}
	return out, nil
}

// ListSessions lists every tmux session.
func (d *TmuxDriver) ListSessions(ctx context.Context) ([]string, error) {
	out, err := d.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if mux, ok := err.(*MultiplexerError); ok && strings.Contains(mux.StderrTail, "no server running") {
			return nil, nil
		}
		return nil, err
	}
	var sessions []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sessions = append(sessions, line)
		}
	}
	return sessions, nil
}

// ListPanes lists every pane in a session with its working directory and
// foreground process name.
func (d *TmuxDriver) ListPanes(ctx context.Context, session string) ([]Pane, error) {
	if err := validateShellSafe("session", session); err != nil {
		return nil, err
	}
	out, err := d.run(ctx, "list-panes", "-t", session, "-F",
		"#{window_id}\t#{pane_id}\t#{pane_current_path}\t#{pane_current_command}\t#{pane_pid}")
	if err != nil {
		return nil, err
	}
	var panes []Pane
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			continue
		}
		pid, _ := strconv.Atoi(fields[4])
		panes = append(panes, Pane{
			SessionName: session,
			WindowID:    fields[0],
			PaneID:      fields[1],
			WorkingDir:  fields[2],
			ProcessName: fields[3],
			PanePID:     pid,
		})
	}
	return panes, nil
}

// CreateSession creates a new detached tmux session rooted at workDir.
func (d *TmuxDriver) CreateSession(ctx context.Context, name, workDir string) error {
	if err := validateShellSafe("name", name); err != nil {
		return err
	}
	if err := validateShellSafe("workDir", workDir); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	_, err := d.run(ctx, args...)
	return err
}

// SplitPane splits target (a pane or window) and returns the new pane id.
func (d *TmuxDriver) SplitPane(ctx context.Context, target string, horizontal bool) (string, error) {
	if err := validateShellSafe("target", target); err != nil {
		return "", err
	}
	args := []string{"split-window", "-t", target, "-P", "-F", "#{pane_id}"}
	if horizontal {
		args = append(args, "-h")
	} else {
		args = append(args, "-v")
	}
	out, err := d.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// SendKeys sends text plus Enter to a pane via the paste-buffer, the same
// load-buffer/paste-buffer two-step the teacher's SendText uses so special
// characters in prompts survive the trip.
func (d *TmuxDriver) SendKeys(ctx context.Context, paneID, text string) error {
	if err := validateShellSafe("paneID", paneID); err != nil {
		return err
	}
	loadCmd := exec.CommandContext(ctx, "tmux", "load-buffer", "-")
	loadCmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	loadCmd.Stderr = &stderr
	if err := loadCmd.Run(); err != nil {
		return &MultiplexerError{Argv: []string{"tmux", "load-buffer", "-"}, StderrTail: stderrTail(stderr.String(), 20), Err: err}
	}
	if _, err := d.run(ctx, "paste-buffer", "-d", "-t", paneID); err != nil {
		return err
	}
	_, err := d.run(ctx, "send-keys", "-t", paneID, "Enter")
	return err
}

// CaptureOutput returns the most recent lineCount lines of scrollback.
func (d *TmuxDriver) CaptureOutput(ctx context.Context, paneID string, lineCount int) (string, error) {
	if err := validateShellSafe("paneID", paneID); err != nil {
		return "", err
	}
	start := "-" + strconv.Itoa(lineCount)
	out, err := d.run(ctx, "capture-pane", "-t", paneID, "-p", "-e", "-S", start)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GetWorkingDirectory returns a pane's current working directory.
func (d *TmuxDriver) GetWorkingDirectory(ctx context.Context, paneID string) (string, error) {
	if err := validateShellSafe("paneID", paneID); err != nil {
		return "", err
	}
	out, err := d.run(ctx, "display-message", "-t", paneID, "-p", "#{pane_current_path}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetProcessName returns a pane's foreground process command name.
func (d *TmuxDriver) GetProcessName(ctx context.Context, paneID string) (string, error) {
	if err := validateShellSafe("paneID", paneID); err != nil {
		return "", err
	}
	out, err := d.run(ctx, "display-message", "-t", paneID, "-p", "#{pane_current_command}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// KillSession terminates a tmux session.
func (d *TmuxDriver) KillSession(ctx context.Context, name string) error {
	if err := validateShellSafe("name", name); err != nil {
		return err
	}
	_, err := d.run(ctx, "kill-session", "-t", name)
	return err
}

// IsAvailable reports whether the tmux binary is reachable at all.
func (d *TmuxDriver) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}
