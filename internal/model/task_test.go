// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateNewTask_PromptBoundaries(t *testing.T) {
	err := ValidateNewTask("", nil, nil, 0, nil)
	assert.Error(t, err)

	huge := strings.Repeat("x", MaxPromptBytes+1)
	err = ValidateNewTask(huge, nil, nil, 0, nil)
	require.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	ok := strings.Repeat("x", MaxPromptBytes)
	assert.NoError(t, ValidateNewTask(ok, nil, nil, 0, nil))
}

func TestValidateNewTask_UnknownCapability(t *testing.T) {
	err := ValidateNewTask("hello", []Capability{"nonsense"}, nil, 0, nil)
	assert.Error(t, err)
}

func TestValidateNewTask_CycleRejection(t *testing.T) {
	// T2 depends on T1, T1 depends on T2 already (pre-existing graph).
	existing := map[string][]string{
		"T1": {"T2"},
		"T2": {"T1"},
	}

	// A new task depending on T1 would close a cycle through T1->T2->T1.
	err := ValidateNewTask("hello", nil, []string{"T1"}, 0, existing)
	assert.Error(t, err)
}

func TestValidateNewTask_AcyclicAccepted(t *testing.T) {
	existing := map[string][]string{
		"T1": nil,
	}
	err := ValidateNewTask("hello", nil, []string{"T1"}, 0, existing)
	assert.NoError(t, err)
}

func TestTask_IsEligible(t *testing.T) {
	statuses := map[string]TaskStatus{
		"T1": TaskStatusCompleted,
		"T2": TaskStatusRunning,
	}
	lookup := func(id string) (TaskStatus, bool) {
		s, ok := statuses[id]
		return s, ok
	}

	eligible := &Task{Status: TaskStatusPending, DependsOn: []string{"T1"}, MaxRetries: 1}
	assert.True(t, eligible.IsEligible(lookup))

	blocked := &Task{Status: TaskStatusPending, DependsOn: []string{"T2"}, MaxRetries: 1}
	assert.False(t, blocked.IsEligible(lookup))

	notPending := &Task{Status: TaskStatusRunning}
	assert.False(t, notPending.IsEligible(lookup))

	retriesExhausted := &Task{Status: TaskStatusPending, RetryCount: 2, MaxRetries: 1}
	assert.False(t, retriesExhausted.IsEligible(lookup))
}
