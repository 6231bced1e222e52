// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package multiplexer

import (
	"context"
	"fmt"
	"sync"
)

// FakeDriver is an in-memory Driver double, in the style of the teacher's
// FakeTmuxExecutor/FakeGitExecutor test doubles.
type FakeDriver struct {
	mu       sync.Mutex
	Sessions map[string]bool
	Panes    map[string]Pane
	Output   map[string]string
	nextPane int
	Available bool
}

// NewFakeDriver returns an empty fake driver that reports itself available.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Sessions:  make(map[string]bool),
		Panes:     make(map[string]Pane),
		Output:    make(map[string]string),
		Available: true,
	}
}

func (f *FakeDriver) ListSessions(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for s := range f.Sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *FakeDriver) ListPanes(ctx context.Context, session string) ([]Pane, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Pane
	for _, p := range f.Panes {
		if p.SessionName == session {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakeDriver) CreateSession(ctx context.Context, name, workDir string) error {
	if err := validateShellSafe("name", name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sessions[name] = true
	paneID := fmt.Sprintf("%%%d", f.nextPane)
	f.nextPane++
	f.Panes[paneID] = Pane{SessionName: name, PaneID: paneID, WorkingDir: workDir}
	return nil
}

func (f *FakeDriver) SplitPane(ctx context.Context, target string, horizontal bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paneID := fmt.Sprintf("%%%d", f.nextPane)
	f.nextPane++
	f.Panes[paneID] = Pane{PaneID: paneID}
	return paneID, nil
}

func (f *FakeDriver) SendKeys(ctx context.Context, paneID, text string) error {
	if err := validateShellSafe("paneID", paneID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Output[paneID] += text + "\n"
	return nil
}

func (f *FakeDriver) CaptureOutput(ctx context.Context, paneID string, lineCount int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Output[paneID], nil
}

func (f *FakeDriver) GetWorkingDirectory(ctx context.Context, paneID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Panes[paneID].WorkingDir, nil
}

func (f *FakeDriver) GetProcessName(ctx context.Context, paneID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Panes[paneID].ProcessName, nil
}

func (f *FakeDriver) KillSession(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Sessions, name)
	return nil
}

func (f *FakeDriver) IsAvailable(ctx context.Context) bool {
	return f.Available
}

// SetProcessName lets a test pretend a pane's foreground process changed,
// used by discovery-scanner tests.
func (f *FakeDriver) SetProcessName(paneID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.Panes[paneID]
	p.ProcessName = name
	f.Panes[paneID] = p
}

// SetOutput lets a test seed a pane's captured scrollback directly.
func (f *FakeDriver) SetOutput(paneID, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Output[paneID] = output
}
