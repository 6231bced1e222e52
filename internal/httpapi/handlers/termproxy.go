// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/khuongdo/mindmux/internal/auth"
	"github.com/khuongdo/mindmux/internal/termproxy"
)

// resizeMessage is the control frame a client sends to change the PTY's
// window size; any other incoming frame is treated as raw keystrokes.
type resizeMessage struct {
	Type string `json:"type"`
	Rows uint16 `json:"rows"`
	Cols uint16 `json:"cols"`
}

// Terminal upgrades GET /debug/terminal to a websocket carrying a raw
// shell PTY, admin-only since it grants arbitrary command execution on
// the host mindmuxd runs on.
type Terminal struct {
	manager  *termproxy.Manager
	authz    *auth.Authorizer
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewTerminal returns a Terminal handler.
func NewTerminal(manager *termproxy.Manager, authz *auth.Authorizer, log zerolog.Logger) *Terminal {
	return &Terminal{
		manager: manager,
		authz:   authz,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "termproxy_handler").Logger(),
	}
}

func (h *Terminal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := authorize(w, r, h.authz, auth.ActionDebugTerminal, "", ""); !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("termproxy: websocket upgrade failed")
		return
	}
	defer conn.Close()

	snap, err := h.manager.Create(termproxy.Options{})
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start shell: "+err.Error()))
		return
	}
	defer h.manager.Close(snap.ID)

	clientID, out, err := h.manager.Attach(snap.ID)
	if err != nil {
		return
	}
	defer h.manager.Detach(snap.ID, clientID)

	done := make(chan struct{})
	go h.pumpOutput(conn, out, done)
	h.pumpInput(conn, snap.ID)
	close(done)
}

func (h *Terminal) pumpOutput(conn *websocket.Conn, out <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case chunk, ok := <-out:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Terminal) pumpInput(conn *websocket.Conn, sessionID string) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage {
			var ctrl resizeMessage
			if decodeControlFrame(data, &ctrl) && ctrl.Type == "resize" {
				_ = h.manager.Resize(sessionID, ctrl.Rows, ctrl.Cols)
				continue
			}
		}
		if _, err := h.manager.Write(sessionID, data); err != nil {
			return
		}
	}
}

// decodeControlFrame reports whether data parses as JSON into v; a plain
// keystroke frame that happens not to be JSON is not an error here, just
// not a control frame.
func decodeControlFrame(data []byte, v interface{}) bool {
	return json.Unmarshal(data, v) == nil
}
