// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/multiplexer"
)

// fakeProcess is a minimal ps.Process double for exercising
// classifyDescendants without touching the real OS process table.
type fakeProcess struct {
	pid, ppid int
	exe       string
}

func (f fakeProcess) Pid() int           { return f.pid }
func (f fakeProcess) PPid() int          { return f.ppid }
func (f fakeProcess) Executable() string { return f.exe }

func TestScanner_SkipsUnknownProcesses(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work/a"))
	panes, _ := driver.ListPanes(ctx, "s1")
	driver.SetProcessName(panes[0].PaneID, "bash")

	s := New(driver, zerolog.Nop())
	out, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScanner_ClassifiesKnownTool(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work/a"))
	panes, _ := driver.ListPanes(ctx, "s1")
	paneID := panes[0].PaneID
	driver.SetProcessName(paneID, "claude")
	driver.SetOutput(paneID, "some text\n>")

	s := New(driver, zerolog.Nop())
	out, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "claude", out[0].ToolType)
	assert.Equal(t, "s1", out[0].SessionName)
	assert.Equal(t, paneID, out[0].PaneID)
	assert.Equal(t, "/work/a", out[0].ProjectPath)
	assert.Equal(t, StatusIdle, out[0].Status)
	assert.NotNil(t, out[0].ActiveMCPs)
}

func TestDetectStatus(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   Status
	}{
		{"empty", "", StatusUnknown},
		{"error", "Traceback (most recent call last):\n", StatusError},
		{"processing", "Thinking...\n", StatusProcessing},
		{"waiting", "Continue? (y/n)\n", StatusWaiting},
		{"idle prompt", "done\n>", StatusIdle},
		{"unrecognized", "some random line\n", StatusUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectStatus(tc.output))
		})
	}
}

func TestClassifyDescendants_FindsToolBelowWrapper(t *testing.T) {
	procs := []psProcess{
		fakeProcess{pid: 100, ppid: 1, exe: "zsh"},
		fakeProcess{pid: 200, ppid: 100, exe: "node"},
		fakeProcess{pid: 300, ppid: 200, exe: "claude"},
	}
	assert.Equal(t, "claude", classifyDescendants(procs, 100))
}

func TestClassifyDescendants_NoMatch(t *testing.T) {
	procs := []psProcess{
		fakeProcess{pid: 100, ppid: 1, exe: "zsh"},
		fakeProcess{pid: 200, ppid: 100, exe: "vim"},
	}
	assert.Equal(t, "", classifyDescendants(procs, 100))
}

func TestScanner_MultipleSessionsAndPanes(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work/a"))
	require.NoError(t, driver.CreateSession(ctx, "s2", "/work/b"))

	panes1, _ := driver.ListPanes(ctx, "s1")
	panes2, _ := driver.ListPanes(ctx, "s2")
	driver.SetProcessName(panes1[0].PaneID, "gemini")
	driver.SetProcessName(panes2[0].PaneID, "zsh")

	s := New(driver, zerolog.Nop())
	out, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "gemini", out[0].ToolType)
	assert.Equal(t, "s1", out[0].SessionName)
}
