// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package multiplexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateShellSafe(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"agent-1_session", false},
		{"normal.name", false},
		{"evil;rm -rf /", true},
		{"evil$(whoami)", true},
		{"evil`whoami`", true},
		{"evil|cat", true},
		{`evil"quote`, true},
		{"evil'quote", true},
		{"evil&background", true},
		{"evil<redirect", true},
		{"evil>redirect", true},
	}
	for _, tt := range tests {
		err := validateShellSafe("field", tt.value)
		if tt.wantErr {
			assert.Error(t, err, tt.value)
		} else {
			assert.NoError(t, err, tt.value)
		}
	}
}

func TestFakeDriver_CreateSessionAndSendKeys(t *testing.T) {
	ctx := context.Background()
	d := NewFakeDriver()

	require.NoError(t, d.CreateSession(ctx, "mindmux-a1", "/tmp/work"))
	sessions, err := d.ListSessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "mindmux-a1")

	panes, err := d.ListPanes(ctx, "mindmux-a1")
	require.NoError(t, err)
	require.Len(t, panes, 1)
	paneID := panes[0].PaneID

	require.NoError(t, d.SendKeys(ctx, paneID, "hello"))
	out, err := d.CaptureOutput(ctx, paneID, 100)
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestFakeDriver_CreateSession_RejectsUnsafeName(t *testing.T) {
	d := NewFakeDriver()
	err := d.CreateSession(context.Background(), "evil;rm -rf /", "/tmp")
	assert.Error(t, err)
}

func TestFakeDriver_KillSession(t *testing.T) {
	ctx := context.Background()
	d := NewFakeDriver()
	require.NoError(t, d.CreateSession(ctx, "s1", ""))
	require.NoError(t, d.KillSession(ctx, "s1"))

	sessions, err := d.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "s1")
}
