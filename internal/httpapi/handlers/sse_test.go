// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khuongdo/mindmux/internal/events"
)

func TestEvents_ReplaysHistoryThenStreamsLive(t *testing.T) {
	bus := events.NewMemoryEventBus(events.MemoryBusConfig{})
	t.Cleanup(func() { bus.Close() })

	require.NoError(t, bus.Publish(context.Background(), events.Event{
		ID: "evt-1", Type: events.EventTaskQueued, Timestamp: time.Now(),
		Payload: map[string]interface{}{"task_id": "t1"},
	}))

	h := NewEvents(bus)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), events.Event{
		ID: "evt-2", Type: events.EventTaskCompleted, Timestamp: time.Now(),
		Payload: map[string]interface{}{"task_id": "t1"},
	}))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.True(t, strings.Contains(body, "event: task:queued"))
	assert.True(t, strings.Contains(body, "event: task:completed"))
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}
