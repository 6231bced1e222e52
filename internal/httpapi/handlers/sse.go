// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/khuongdo/mindmux/internal/events"
)

// heartbeatInterval matches spec §6's 30s SSE heartbeat.
const heartbeatInterval = 30 * time.Second

// Events handles GET /events: replays up to events.ReplayBufferSize past
// events, then streams live ones until the client disconnects. Grounded
// on the teacher's handlers/logs.go StreamSSE (headers, flusher check,
// keepalive ticker, write-on-context-done loop), generalized from one
// log viewer's channel to the shared event bus.
type Events struct {
	bus events.EventBus
}

// NewEvents returns an Events handler.
func NewEvents(bus events.EventBus) *Events {
	return &Events{bus: bus}
}

func (h *Events) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "streaming not supported")
		return
	}

	fmt.Fprint(w, ": SSE connection established\n\n")
	flusher.Flush()

	past, err := h.bus.History(events.EventFilter{Limit: events.ReplayBufferSize})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	for _, evt := range past {
		writeSSE(w, evt)
	}
	flusher.Flush()

	eventCh := make(chan events.Event, 256)
	subID, err := h.bus.SubscribeAsync("*", func(_ context.Context, evt events.Event) error {
		select {
		case eventCh <- evt:
		default:
		}
		return nil
	}, 256)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}
	defer h.bus.Unsubscribe(subID)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			writeSSE(w, events.Event{Type: events.EventHeartbeat, Timestamp: time.Now(), Payload: map[string]interface{}{}})
			flusher.Flush()
		case evt := <-eventCh:
			writeSSE(w, evt)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, evt events.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
}
