// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/khuongdo/mindmux/internal/model"
)

// InsertSession writes a new session row.
func (s *Store) InsertSession(sess *model.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.writeDB.Exec(
		`INSERT INTO sessions (id, agent_id, multiplexer_session, status, started_at, ended_at, process_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AgentID, sess.MultiplexerSessionName, string(sess.Status),
		sess.StartedAt.Unix(), nullableTime(sess.EndedAt), sess.ProcessID,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSession persists a full row overwrite for an existing session.
func (s *Store) UpdateSession(sess *model.Session) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.writeDB.Exec(
		`UPDATE sessions SET status=?, ended_at=? WHERE id=?`,
		string(sess.Status), nullableTime(sess.EndedAt), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError("session", sess.ID)
	}
	return nil
}

// GetSession loads a single session by id.
func (s *Store) GetSession(id string) (*model.Session, error) {
	row := s.readDB.QueryRow(sessionSelect+` WHERE id=?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("session", id)
	}
	return sess, err
}

// ListSessions loads every session row.
func (s *Store) ListSessions() ([]*model.Session, error) {
	rows, err := s.readDB.Query(sessionSelect + ` ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

const sessionSelect = `SELECT id, agent_id, multiplexer_session, status, started_at, ended_at, process_id FROM sessions`

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		sess      model.Session
		status    string
		startedAt int64
		endedAt   sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.AgentID, &sess.MultiplexerSessionName, &status, &startedAt, &endedAt, &sess.ProcessID); err != nil {
		return nil, err
	}
	sess.Status = model.SessionStatus(status)
	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	if endedAt.Valid {
		v := time.Unix(endedAt.Int64, 0).UTC()
		sess.EndedAt = &v
	}
	return &sess, nil
}
