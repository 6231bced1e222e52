// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discovery enumerates multiplexer panes and classifies their
// foreground processes as known AI tools (spec §4.5). It is grounded on
// the teacher's internal/terminal/manager.go pane/window enumeration
// (ListWindows, resolveWindowTarget) combined with mitchellh/go-ps — a
// teacher dependency — for foreground-process classification instead of
// shelling out to `ps` by hand.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/multiplexer"
)

// Status is the heuristic activity classification of a discovered pane.
type Status string

const (
	StatusError      Status = "error"
	StatusProcessing Status = "processing"
	StatusWaiting    Status = "waiting"
	StatusIdle       Status = "idle"
	StatusUnknown    Status = "unknown"
)

// knownTools is the closed set of AI-tool process names discovery
// classifies against; anything else is skipped (spec §4.5).
var knownTools = map[string]bool{
	"claude":   true,
	"gemini":   true,
	"opencode": true,
	"cursor":   true,
	"aider":    true,
	"codex":    true,
}

// AISession is one discovered pane running a recognized AI tool.
type AISession struct {
	ID          string
	SessionName string
	PaneID      string
	WindowID    string
	ToolType    string
	ProcessName string
	ProjectPath string
	Status      Status
	LastUpdated time.Time
	ActiveMCPs  []string
}

// Scanner enumerates panes across every multiplexer session.
type Scanner struct {
	driver multiplexer.Driver
	log    zerolog.Logger
}

// New returns a Scanner driving the given multiplexer.
func New(driver multiplexer.Driver, log zerolog.Logger) *Scanner {
	return &Scanner{driver: driver, log: log.With().Str("component", "discovery").Logger()}
}

// Scan walks every session and pane, classifying foreground processes and
// skipping anything not in the known-tool set (spec §4.5).
func (s *Scanner) Scan(ctx context.Context) ([]AISession, error) {
	sessionNames, err := s.driver.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	rawProcs, err := ps.Processes()
	if err != nil {
		s.log.Warn().Err(err).Msg("discovery: enumerate os processes failed, falling back to pane_current_command only")
		rawProcs = nil
	}
	procs := make([]psProcess, len(rawProcs))
	for i, p := range rawProcs {
		procs[i] = p
	}

	var out []AISession
	for _, sessionName := range sessionNames {
		panes, err := s.driver.ListPanes(ctx, sessionName)
		if err != nil {
			s.log.Warn().Err(err).Str("session", sessionName).Msg("discovery: list panes failed")
			continue
		}
		for _, pane := range panes {
			toolType := classify(pane.ProcessName)
			if toolType == "" && pane.PanePID != 0 {
				toolType = classifyDescendants(procs, pane.PanePID)
			}
			if toolType == "" {
				continue
			}

			output, err := s.driver.CaptureOutput(ctx, pane.PaneID, 20)
			if err != nil {
				s.log.Warn().Err(err).Str("pane", pane.PaneID).Msg("discovery: capture output failed")
				output = ""
			}

			out = append(out, AISession{
				ID:          pane.PaneID,
				SessionName: sessionName,
				PaneID:      pane.PaneID,
				WindowID:    pane.WindowID,
				ToolType:    toolType,
				ProcessName: pane.ProcessName,
				ProjectPath: pane.WorkingDir,
				Status:      detectStatus(output),
				LastUpdated: time.Now(),
				ActiveMCPs:  []string{},
			})
		}
	}
	return out, nil
}

func classify(processName string) string {
	name := strings.ToLower(strings.TrimSpace(processName))
	for tool := range knownTools {
		if name == tool {
			return tool
		}
	}
	return ""
}

// psProcess is the subset of ps.Process classifyDescendants relies on,
// declared locally so tests can supply a fake without touching the real
// OS process table.
type psProcess interface {
	Pid() int
	PPid() int
	Executable() string
}

// classifyDescendants walks the OS process tree rooted at a pane's shell
// PID looking for a known tool executable. tmux's pane_current_command
// often reports the immediate interpreter (node, python) wrapping the
// actual CLI rather than the tool itself, so the shell-level name alone
// misses most real installs.
func classifyDescendants(procs []psProcess, rootPID int) string {
	if len(procs) == 0 {
		return ""
	}
	children := make(map[int][]psProcess)
	for _, p := range procs {
		children[p.PPid()] = append(children[p.PPid()], p)
	}

	queue := []int{rootPID}
	seen := map[int]bool{rootPID: true}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			if tool := classify(child.Executable()); tool != "" {
				return tool
			}
			if !seen[child.Pid()] {
				seen[child.Pid()] = true
				queue = append(queue, child.Pid())
			}
		}
	}
	return ""
}

// detectStatus is the heuristic spec §4.5 calls for: error / processing /
// waiting / idle / unknown over the last 20 lines of captured output.
func detectStatus(output string) Status {
	if output == "" {
		return StatusUnknown
	}
	lower := strings.ToLower(output)

	switch {
	case strings.Contains(lower, "traceback") || strings.Contains(lower, "error:") || strings.Contains(lower, "fatal"):
		return StatusError
	case strings.Contains(lower, "thinking") || strings.Contains(lower, "generating") || strings.Contains(lower, "processing"):
		return StatusProcessing
	case strings.Contains(lower, "?") && (strings.Contains(lower, "continue") || strings.Contains(lower, "confirm")):
		return StatusWaiting
	case strings.HasSuffix(strings.TrimRight(output, "\n"), ">") || strings.Contains(lower, "ready"):
		return StatusIdle
	default:
		return StatusUnknown
	}
}
