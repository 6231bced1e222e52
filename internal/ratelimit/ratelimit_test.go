// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_TenAllowedThenEleventhDenied(t *testing.T) {
	l := New(Config{Max: 10, Window: time.Second})
	for i := 0; i < 10; i++ {
		res := l.CheckLimit("client-a")
		assert.Truef(t, res.Allowed, "request %d should be allowed", i+1)
	}
	eleventh := l.CheckLimit("client-a")
	assert.False(t, eleventh.Allowed)
	assert.Equal(t, 0, eleventh.Remaining)
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := New(Config{Max: 5, Window: 100 * time.Millisecond})
	for i := 0; i < 5; i++ {
		require := l.CheckLimit("client-b")
		assert.True(t, require.Allowed)
	}
	denied := l.CheckLimit("client-b")
	assert.False(t, denied.Allowed)

	time.Sleep(110 * time.Millisecond)
	afterWait := l.CheckLimit("client-b")
	assert.True(t, afterWait.Allowed)
}

func TestLimiter_IndependentPerClient(t *testing.T) {
	l := New(Config{Max: 1, Window: time.Second})
	first := l.CheckLimit("client-c")
	assert.True(t, first.Allowed)

	other := l.CheckLimit("client-d")
	assert.True(t, other.Allowed)

	secondForC := l.CheckLimit("client-c")
	assert.False(t, secondForC.Allowed)
}

func TestLimiter_Prune_RemovesIdleClients(t *testing.T) {
	l := New(Config{Max: 1, Window: time.Second})
	l.CheckLimit("stale-client")
	l.Prune(0)

	l.mu.Lock()
	_, exists := l.buckets["stale-client"]
	l.mu.Unlock()
	assert.False(t, exists)
}

func TestLimiter_ZeroConfigDefaults(t *testing.T) {
	l := New(Config{})
	res := l.CheckLimit("client-e")
	assert.True(t, res.Allowed)
}
