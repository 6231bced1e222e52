// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package forker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/cliadapter"
	"github.com/khuongdo/mindmux/internal/multiplexer"
)

// fakeAdapter is a minimal cliadapter.Adapter double for exercising the
// fork protocol without a real state machine.
type fakeAdapter struct {
	idle        bool
	spawnErr    error
	promptErr   error
	sentPrompts []string
}

func (f *fakeAdapter) CheckInstalled(ctx context.Context) bool       { return true }
func (f *fakeAdapter) GetInstallInstructions() string                { return "" }
func (f *fakeAdapter) SpawnProcess(ctx context.Context, sessionName string, cfg cliadapter.SpawnConfig) error {
	return f.spawnErr
}
func (f *fakeAdapter) SendPrompt(ctx context.Context, sessionName, prompt string, cfg cliadapter.PromptConfig) cliadapter.PromptResult {
	f.sentPrompts = append(f.sentPrompts, prompt)
	if f.promptErr != nil {
		return cliadapter.PromptResult{Err: f.promptErr}
	}
	return cliadapter.PromptResult{Success: true, Output: "ok"}
}
func (f *fakeAdapter) SendCommand(ctx context.Context, sessionName, raw string) error { return nil }
func (f *fakeAdapter) IsIdle(ctx context.Context, sessionName string) (bool, error)   { return f.idle, nil }
func (f *fakeAdapter) GetOutput(ctx context.Context, sessionName string, lines int) (string, error) {
	return "", nil
}
func (f *fakeAdapter) Terminate(ctx context.Context, sessionName string) error { return nil }

func TestForker_Fork_Success(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work"))
	panes, _ := driver.ListPanes(ctx, "s1")
	sourcePane := panes[0].PaneID
	driver.SetOutput(sourcePane, "> fix the bug\nAI: done, see diff\n")

	f := New(driver, zerolog.Nop())
	adapter := &fakeAdapter{idle: true}

	result, err := f.Fork(ctx, sourcePane, adapter, 2*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, sourcePane, result.NewPaneID)
	assert.Contains(t, result.Prologue, "fix the bug")
	require.Len(t, adapter.sentPrompts, 1)
	assert.Equal(t, result.Prologue, adapter.sentPrompts[0])
}

func TestForker_Fork_AbortsOnSpawnFailure(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work"))
	panes, _ := driver.ListPanes(ctx, "s1")
	sourcePane := panes[0].PaneID

	f := New(driver, zerolog.Nop())
	adapter := &fakeAdapter{spawnErr: errors.New("boom")}

	_, err := f.Fork(ctx, sourcePane, adapter, 2*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn cli")
}

func TestForker_Fork_TimesOutWaitingForReady(t *testing.T) {
	driver := multiplexer.NewFakeDriver()
	ctx := context.Background()
	require.NoError(t, driver.CreateSession(ctx, "s1", "/work"))
	panes, _ := driver.ListPanes(ctx, "s1")
	sourcePane := panes[0].PaneID

	f := New(driver, zerolog.Nop())
	adapter := &fakeAdapter{idle: false}

	_, err := f.Fork(ctx, sourcePane, adapter, 50*time.Millisecond)
	require.Error(t, err)
	var timeoutErr *cliadapter.ErrorTimeout
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestParseTurns(t *testing.T) {
	scrollback := "> hello there\nAI: hi, how can I help\n> write a test\nAssistant: sure thing\n"
	turns := parseTurns(scrollback)
	require.Len(t, turns, 4)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hello there", turns[0].Text)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "sure thing", turns[3].Text)
}

func TestBuildPrologue_FallsBackWhenTooLong(t *testing.T) {
	var turns []Turn
	for i := 0; i < 50; i++ {
		turns = append(turns, Turn{Role: "user", Text: strings.Repeat("x", 200)})
	}
	prologue := buildPrologue(turns)
	assert.True(t, strings.HasPrefix(prologue, "Recent conversation:"))
	assert.LessOrEqual(t, len(prologue), maxPrologueChars+len("Recent conversation:\n")+50)
}
