// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"time"

	"github.com/khuongdo/mindmux/internal/model"
)

// AppendAudit inserts one append-only audit entry and returns the id SQLite
// assigned it. Ids and timestamps are strictly monotonic (invariant I6)
// because this is the sole insertion path and it runs under writeMu.
func (s *Store) AppendAudit(e *model.AuditEntry) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.writeDB.Exec(
		`INSERT INTO audit_entries (timestamp, user_id, action, resource, resource_type, result, details, error, ip, token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Unix(), e.UserID, e.Action, e.Resource, e.ResourceType, string(e.Result),
		e.Details, e.Error, e.IP, e.Token,
	)
	if err != nil {
		return 0, fmt.Errorf("append audit entry: %w", err)
	}
	return res.LastInsertId()
}

// ListAudit loads every audit entry in insertion order, oldest first.
func (s *Store) ListAudit() ([]*model.AuditEntry, error) {
	rows, err := s.readDB.Query(
		`SELECT id, timestamp, user_id, action, resource, resource_type, result, details, error, ip, token
		 FROM audit_entries ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var (
			e         model.AuditEntry
			result    string
			timestamp int64
		)
		if err := rows.Scan(&e.ID, &timestamp, &e.UserID, &e.Action, &e.Resource, &e.ResourceType,
			&result, &e.Details, &e.Error, &e.IP, &e.Token); err != nil {
			return nil, err
		}
		e.Result = model.AuditResult(result)
		e.Timestamp = time.Unix(timestamp, 0).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ClearAudit deletes every audit entry. Only reachable via an explicit
// admin `clear` action (invariant I6's one sanctioned exception).
func (s *Store) ClearAudit() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.writeDB.Exec(`DELETE FROM audit_entries`); err != nil {
		return fmt.Errorf("clear audit entries: %w", err)
	}
	return nil
}
