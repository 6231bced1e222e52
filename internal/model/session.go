// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// SessionStatus is the lifecycle state of an agent-to-pane binding.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// Session is a binding between an agent and a live multiplexer pane.
type Session struct {
	ID                     string
	AgentID                string
	MultiplexerSessionName string
	Status                 SessionStatus
	StartedAt              time.Time
	EndedAt                *time.Time
	ProcessID              int
}
