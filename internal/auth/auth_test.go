// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/model"
)

type fakeAuditStore struct {
	entries []*model.AuditEntry
}

func (f *fakeAuditStore) AppendAudit(e *model.AuditEntry) (int64, error) {
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return e.ID, nil
}

func TestValidator_IssueThenValidate_RoundTrips(t *testing.T) {
	v := NewValidator("test-secret")
	token, err := v.IssueToken("user-1", RoleOperator, []string{"agent-1"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, RoleOperator, id.Role)
	assert.True(t, id.Owns("agent-1"))
	assert.False(t, id.Owns("agent-2"))
}

func TestValidator_ExpiredToken_IsUnauthenticated(t *testing.T) {
	v := NewValidator("test-secret")
	token, err := v.IssueToken("user-1", RoleViewer, nil, -time.Minute)
	require.NoError(t, err)

	_, err = v.Validate(token)
	require.Error(t, err)
	var authErr *model.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestValidator_WrongSecret_IsUnauthenticated(t *testing.T) {
	v1 := NewValidator("secret-one")
	v2 := NewValidator("secret-two")
	token, err := v1.IssueToken("user-1", RoleAdmin, nil, time.Hour)
	require.NoError(t, err)

	_, err = v2.Validate(token)
	require.Error(t, err)
}

func TestTokenFromContext_PrefersContextOverEnv(t *testing.T) {
	t.Setenv(EnvTokenVar, "env-token")
	ctx := ContextWithToken(context.Background(), "ctx-token")
	tok, ok := TokenFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ctx-token", tok)
}

func TestTokenFromContext_FallsBackToEnv(t *testing.T) {
	t.Setenv(EnvTokenVar, "env-token")
	tok, ok := TokenFromContext(context.Background())
	require.True(t, ok)
	assert.Equal(t, "env-token", tok)
}

func TestTokenFromContext_NoneFound(t *testing.T) {
	t.Setenv(EnvTokenVar, "")
	_, ok := TokenFromContext(context.Background())
	assert.False(t, ok)
}

func TestAuthorizer_ViewerCanRead(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	viewer := &Identity{UserID: "v1", Role: RoleViewer, OwnedResources: map[string]bool{}}

	err := az.Check(viewer, ActionAgentList, "", "")
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	assert.Equal(t, model.AuditResultSuccess, store.entries[0].Result)
	assert.Equal(t, model.AuditActionAgentList, store.entries[0].Action)
}

func TestAuthorizer_ViewerCannotMutate(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	viewer := &Identity{UserID: "v1", Role: RoleViewer, OwnedResources: map[string]bool{}}

	err := az.Check(viewer, ActionTaskQueue, "", "")
	require.Error(t, err)
	var authzErr *model.AuthorizationError
	assert.ErrorAs(t, err, &authzErr)

	require.Len(t, store.entries, 1)
	assert.Equal(t, model.AuditResultFailure, store.entries[0].Result)
	assert.Equal(t, model.AuditActionPermissionDenied, store.entries[0].Action)
}

func TestAuthorizer_OperatorCannotDeleteOrStop(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	operator := &Identity{UserID: "op1", Role: RoleOperator, OwnedResources: map[string]bool{"agent-1": true}}

	err := az.Check(operator, ActionAgentDelete, "agent-1", "op1")
	require.Error(t, err)

	err = az.Check(operator, ActionAgentStop, "agent-1", "op1")
	require.Error(t, err)
}

func TestAuthorizer_AdminBypassesOwnership(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	admin := &Identity{UserID: "admin1", Role: RoleAdmin, OwnedResources: map[string]bool{}}

	err := az.Check(admin, ActionAgentDelete, "agent-1", "someone-else")
	require.NoError(t, err)
}

func TestAuthorizer_OwnershipCheck_DeniesNonOwner(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	operator := &Identity{UserID: "op1", Role: RoleOperator, OwnedResources: map[string]bool{}}

	err := az.Check(operator, ActionTaskCancel, "task-1", "someone-else")
	require.Error(t, err)
}

func TestAuthorizer_OwnershipCheck_AllowsOwnerViaOwnedResources(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	operator := &Identity{UserID: "op1", Role: RoleOperator, OwnedResources: map[string]bool{"task-1": true}}

	err := az.Check(operator, ActionTaskCancel, "task-1", "someone-else")
	require.NoError(t, err)
}

func TestAuthorizer_OwnershipCheck_AllowsOwnerViaResourceOwnerField(t *testing.T) {
	store := &fakeAuditStore{}
	az := NewAuthorizer(store)
	operator := &Identity{UserID: "op1", Role: RoleOperator, OwnedResources: map[string]bool{}}

	err := az.Check(operator, ActionTaskCancel, "task-1", "op1")
	require.NoError(t, err)
}
