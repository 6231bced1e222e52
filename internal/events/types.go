// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus that feeds the
// monitoring SSE endpoint and any other internal subscriber (the
// scheduler's own instrumentation, the audit ledger, future alerting).
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record published by the core.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter for querying event history.
type EventFilter struct {
	Types []string  // Event types to match (supports wildcards)
	Since time.Time // Events after this time
	Until time.Time // Events before this time
	Limit int       // Maximum events to return
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter. GET /events uses it
	// to replay the bounded queue to a freshly-subscribed SSE client.
	History(filter EventFilter) ([]Event, error)

	// Close shuts down the event bus gracefully.
	Close() error
}

// Event type vocabulary. These are the only types the core ever
// publishes; HTTP handlers and the scheduler reference these constants
// rather than string literals.
const (
	EventAgentStatusChanged = "agent:status_changed"
	EventTaskQueued         = "task:queued"
	EventTaskAssigned       = "task:assigned"
	EventTaskCompleted      = "task:completed"
	EventTaskFailed         = "task:failed"
	EventTaskCancelled      = "task:cancelled"
	EventError              = "error"
	EventAlertTriggered     = "alert:triggered"
	EventHeartbeat          = "heartbeat"

	// EventAdapterBinaryChanged is published by internal/watcher when a
	// CLI adapter's resolved binary or the daemon's config file changes
	// on disk. mindmuxd does not hot-reload; this is purely advisory so
	// an operator watching /events knows a restart may be warranted.
	EventAdapterBinaryChanged = "adapter:binary_changed"
)

// ReplayBufferSize is the number of most-recent events a late SSE
// subscriber is guaranteed to see on connect (spec §4.8, §8 scenario 6).
const ReplayBufferSize = 1000
