// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"time"

	"github.com/khuongdo/mindmux/internal/model"
)

// Action is one entry in the fixed permission matrix (spec §4.10).
type Action string

const (
	ActionAgentList     Action = "agent:list"
	ActionAgentRead     Action = "agent:read"
	ActionTaskList      Action = "task:list"
	ActionTaskRead      Action = "task:read"
	ActionSessionLogs   Action = "session:logs"
	ActionConfigRead    Action = "config:read"
	ActionAgentCreate   Action = "agent:create"
	ActionAgentStart    Action = "agent:start"
	ActionTaskQueue     Action = "task:queue"
	ActionTaskCancel    Action = "task:cancel"
	ActionSessionAttach Action = "session:attach"
	ActionAgentDelete   Action = "agent:delete"
	ActionAgentStop     Action = "agent:stop"
	ActionConfigWrite   Action = "config:write"
	ActionAuditRead     Action = "audit:read"
	ActionKeyRotate     Action = "key:rotate"

	// ActionAgentFork extends the permission matrix: forking clones a
	// running agent's session the same way agent:create provisions a
	// new one, so it carries the same admin+operator grant.
	ActionAgentFork Action = "agent:fork"

	// ActionDebugTerminal guards the raw host-shell websocket
	// (internal/termproxy); admin-only, same tier as key:rotate.
	ActionDebugTerminal Action = "debug:terminal"
)

// ownershipActions require resource.owner == user.userId (or resource id
// in the caller's owned set) unless the caller is admin.
var ownershipActions = map[Action]bool{
	ActionAgentDelete: true,
	ActionAgentStop:   true,
	ActionTaskCancel:  true,
}

// matrix maps each action to the set of roles permitted to perform it.
var matrix = map[Action]map[Role]bool{
	ActionAgentList:     {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionAgentRead:     {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionTaskList:      {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionTaskRead:      {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionSessionLogs:   {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionConfigRead:    {RoleAdmin: true, RoleOperator: true, RoleViewer: true},
	ActionAgentCreate:   {RoleAdmin: true, RoleOperator: true},
	ActionAgentStart:    {RoleAdmin: true, RoleOperator: true},
	ActionAgentFork:     {RoleAdmin: true, RoleOperator: true},
	ActionTaskQueue:     {RoleAdmin: true, RoleOperator: true},
	ActionTaskCancel:    {RoleAdmin: true, RoleOperator: true},
	ActionSessionAttach: {RoleAdmin: true, RoleOperator: true},
	ActionAgentDelete:   {RoleAdmin: true},
	ActionAgentStop:     {RoleAdmin: true},
	ActionConfigWrite:   {RoleAdmin: true},
	ActionAuditRead:     {RoleAdmin: true},
	ActionKeyRotate:     {RoleAdmin: true},
	ActionDebugTerminal: {RoleAdmin: true},
}

// actionToAuditCode maps an Action to the model.AuditAction* constant
// recorded on a successful check. A denied check always records
// model.AuditActionPermissionDenied instead.
var actionToAuditCode = map[Action]string{
	ActionAgentList:     model.AuditActionAgentList,
	ActionAgentRead:     model.AuditActionAgentRead,
	ActionTaskList:      model.AuditActionTaskList,
	ActionTaskRead:      model.AuditActionTaskRead,
	ActionSessionLogs:   model.AuditActionSessionLogs,
	ActionConfigRead:    model.AuditActionConfigRead,
	ActionAgentCreate:   model.AuditActionAgentCreate,
	ActionAgentStart:    model.AuditActionAgentStart,
	ActionAgentFork:     model.AuditActionAgentFork,
	ActionTaskQueue:     model.AuditActionTaskQueue,
	ActionTaskCancel:    model.AuditActionTaskCancel,
	ActionSessionAttach: model.AuditActionSessionAttach,
	ActionAgentDelete:   model.AuditActionAgentDelete,
	ActionAgentStop:     model.AuditActionAgentStop,
	ActionConfigWrite:   model.AuditActionConfigWrite,
	ActionAuditRead:     model.AuditActionAuditRead,
	ActionKeyRotate:     model.AuditActionKeyRotate,
	ActionDebugTerminal: model.AuditActionDebugTerminal,
}

// AuditAppender is the subset of *store.Store the Authorizer needs. It is
// an interface so tests can substitute an in-memory recorder instead of
// standing up a real database.
type AuditAppender interface {
	AppendAudit(e *model.AuditEntry) (int64, error)
}

// Authorizer enforces the permission matrix and ownership rule, appending
// one audit entry per check regardless of outcome.
type Authorizer struct {
	audit AuditAppender
}

// NewAuthorizer returns an Authorizer writing to audit.
func NewAuthorizer(audit AuditAppender) *Authorizer {
	return &Authorizer{audit: audit}
}

// Check evaluates whether identity may perform action on a resource.
// resourceID and resourceOwner are ignored for actions with no ownership
// requirement. Every call appends exactly one audit entry.
func (a *Authorizer) Check(identity *Identity, action Action, resourceID, resourceOwner string) error {
	allowed, reason := a.evaluate(identity, action, resourceID, resourceOwner)

	entry := &model.AuditEntry{
		Timestamp: time.Now(),
		UserID:    identity.UserID,
		Resource:  resourceID,
		Token:     identity.Token,
	}
	if allowed {
		entry.Action = actionToAuditCode[action]
		entry.Result = model.AuditResultSuccess
	} else {
		entry.Action = model.AuditActionPermissionDenied
		entry.Result = model.AuditResultFailure
		entry.Error = reason
		entry.Details = string(action)
	}

	if _, err := a.audit.AppendAudit(entry); err != nil {
		return err
	}

	if !allowed {
		return model.NewAuthorizationError(identity.UserID, string(action), reason)
	}
	return nil
}

func (a *Authorizer) evaluate(identity *Identity, action Action, resourceID, resourceOwner string) (bool, string) {
	roles, known := matrix[action]
	if !known {
		return false, "unknown action"
	}
	if !roles[identity.Role] {
		return false, "role " + string(identity.Role) + " is not permitted to perform " + string(action)
	}
	if ownershipActions[action] && identity.Role != RoleAdmin {
		if resourceOwner != identity.UserID && !identity.Owns(resourceID) {
			return false, "caller does not own resource " + resourceID
		}
	}
	return true, ""
}
