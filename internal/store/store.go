// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store implements MindMux's durable state: an embedded
// modernc.org/sqlite database with WAL journaling, a 5 second busy
// timeout, and foreign-key enforcement, holding the agents, tasks,
// sessions, and audit_entries tables spec §4.3/§6 describe.
//
// All mutations funnel through a single write handle capped at one open
// connection (spec §5, "one writer, many readers"); reads use a separate,
// unbounded read handle so queries never queue behind a writer holding
// the WAL lock.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store is the durable state backing MindMux's hot cache.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	// writeMu serializes the logical write path (read-modify-write
	// sequences spanning more than one statement) on top of SQLite's own
	// single-writer contention; the sqlite busy_timeout handles the rest.
	writeMu sync.Mutex
	log     zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	capabilities TEXT NOT NULL,
	config TEXT NOT NULL,
	status TEXT NOT NULL,
	lifetime_dispatched INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	required_capabilities TEXT NOT NULL,
	priority INTEGER NOT NULL,
	status TEXT NOT NULL,
	assigned_agent_id TEXT REFERENCES agents(id),
	depends_on TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	completed_at INTEGER,
	result TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 0,
	timeout_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL REFERENCES agents(id),
	multiplexer_session TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	process_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	user_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	token TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_sessions_agent ON sessions(agent_id);
`

// Open creates or opens the sqlite database at path, applying WAL
// journaling, the 5 second busy timeout, and foreign-key enforcement
// spec §4.3 requires, then ensures the schema exists.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		path,
	)

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open write handle: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("open read handle: %w", err)
	}

	if _, err := writeDB.Exec(schema); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{writeDB: writeDB, readDB: readDB, log: log.With().Str("component", "store").Logger()}, nil
}

// Close releases both database handles.
func (s *Store) Close() error {
	werr := s.writeDB.Close()
	rerr := s.readDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
