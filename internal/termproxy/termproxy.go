// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package termproxy gives an admin a raw PTY-backed shell into the host
// mindmuxd runs on, for local dev/debug use (SPEC_FULL.md §10 domain
// stack). It is deliberately separate from the Multiplexer Driver: the
// driver scrapes tmux panes running opaque CLI tools, while a termproxy
// session is a plain shell process under a real pseudo-terminal, shared
// by every attached websocket client the way one tmux pane is shared by
// every terminal watching it.
package termproxy

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultHistoryBytes bounds how much scrollback a late-joining client
// replays on attach.
const defaultHistoryBytes = 64 * 1024

// Options configures a new debug shell session.
type Options struct {
	Shell   string
	WorkDir string
	Rows    uint16
	Cols    uint16
}

// Snapshot is a read-only view of a session's metadata.
type Snapshot struct {
	ID         string
	Shell      string
	WorkDir    string
	Rows       uint16
	Cols       uint16
	CreatedAt  time.Time
	LastActive time.Time
	Clients    int
	Alive      bool
}

type subscriber struct {
	id string
	ch chan []byte
}

type session struct {
	id         string
	shell      string
	workDir    string
	createdAt  time.Time
	lastActive time.Time
	rows, cols uint16

	cmd  *exec.Cmd
	ptmx *os.File
	done chan struct{}

	mu          sync.Mutex
	subscribers map[string]*subscriber
	history     []byte
	closed      bool
}

// Manager holds every live debug shell session. Grounded on
// apex-build-platform's terminal.Multiplexer: one real PTY process per
// session, fanned out to any number of subscriber channels.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	log      zerolog.Logger
}

// New returns an empty Manager.
func New(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		log:      log.With().Str("component", "termproxy").Logger(),
	}
}

// Create starts a new shell under a PTY and begins its read loop.
func (m *Manager) Create(opts Options) (*Snapshot, error) {
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 24
	}
	if cols == 0 {
		cols = 80
	}

	cmd := exec.Command(shell)
	cmd.Dir = workDir
	cmd.Env = os.Environ()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("termproxy: start pty: %w", err)
	}

	s := &session{
		id:          uuid.NewString(),
		shell:       shell,
		workDir:     workDir,
		createdAt:   time.Now(),
		lastActive:  time.Now(),
		rows:        rows,
		cols:        cols,
		cmd:         cmd,
		ptmx:        ptmx,
		done:        make(chan struct{}),
		subscribers: make(map[string]*subscriber),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	go m.readLoop(s)
	go m.waitLoop(s)

	return m.snapshot(s), nil
}

// Attach registers a new subscriber on sessionID and returns its output
// channel (seeded with buffered history) plus the subscriber id needed
// to Detach.
func (m *Manager) Attach(sessionID string) (clientID string, out <-chan []byte, err error) {
	s, ok := m.get(sessionID)
	if !ok {
		return "", nil, fmt.Errorf("termproxy: session %s not found", sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{id: uuid.NewString(), ch: make(chan []byte, 256)}
	s.subscribers[sub.id] = sub
	s.lastActive = time.Now()
	if len(s.history) > 0 {
		buf := append([]byte(nil), s.history...)
		select {
		case sub.ch <- buf:
		default:
		}
	}
	return sub.id, sub.ch, nil
}

// Detach removes a subscriber without affecting the underlying shell.
func (m *Manager) Detach(sessionID, clientID string) {
	s, ok := m.get(sessionID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[clientID]; ok {
		delete(s.subscribers, clientID)
		close(sub.ch)
	}
}

// Write sends client keystrokes into the shell's PTY.
func (m *Manager) Write(sessionID string, p []byte) (int, error) {
	s, ok := m.get(sessionID)
	if !ok {
		return 0, fmt.Errorf("termproxy: session %s not found", sessionID)
	}
	s.mu.Lock()
	s.lastActive = time.Now()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return 0, io.ErrClosedPipe
	}
	return ptmx.Write(p)
}

// Resize adjusts the PTY window size.
func (m *Manager) Resize(sessionID string, rows, cols uint16) error {
	s, ok := m.get(sessionID)
	if !ok {
		return fmt.Errorf("termproxy: session %s not found", sessionID)
	}
	if rows == 0 || cols == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.cols = rows, cols
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Close terminates the shell and releases its PTY.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.closeResources(s)
}

// List returns a snapshot of every live session.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *m.snapshot(s))
	}
	return out
}

func (m *Manager) get(sessionID string) (*session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *Manager) snapshot(s *session) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Snapshot{
		ID:         s.id,
		Shell:      s.shell,
		WorkDir:    s.workDir,
		Rows:       s.rows,
		Cols:       s.cols,
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
		Clients:    len(s.subscribers),
		Alive:      !s.closed,
	}
}

func (m *Manager) readLoop(s *session) {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.mu.Lock()
			s.history = append(s.history, chunk...)
			if len(s.history) > defaultHistoryBytes {
				s.history = s.history[len(s.history)-defaultHistoryBytes:]
			}
			s.lastActive = time.Now()
			for _, sub := range s.subscribers {
				select {
				case sub.ch <- chunk:
				default:
				}
			}
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) waitLoop(s *session) {
	_ = s.cmd.Wait()
	close(s.done)
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()
	_ = m.closeResources(s)
}

func (m *Manager) closeResources(s *session) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, sub := range s.subscribers {
		delete(s.subscribers, id)
		close(sub.ch)
	}
	s.mu.Unlock()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.ptmx.Close()
}
