// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khuongdo/mindmux/internal/model"
)

// InsertTask writes a new task row.
func (s *Store) InsertTask(t *model.Task) error {
	capsJSON, err := json.Marshal(t.RequiredCapabilities)
	if err != nil {
		return fmt.Errorf("marshal required capabilities: %w", err)
	}
	depsJSON, err := json.Marshal(t.DependsOn)
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.writeDB.Exec(
		`INSERT INTO tasks (id, prompt, required_capabilities, priority, status, assigned_agent_id, depends_on,
		                    created_at, started_at, completed_at, result, error_message, retry_count, max_retries, timeout_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Prompt, string(capsJSON), t.Priority, string(t.Status), nullableString(t.AssignedAgentID), string(depsJSON),
		t.CreatedAt.Unix(), nullableTime(t.StartedAt), nullableTime(t.CompletedAt),
		t.Result, t.ErrorMessage, t.RetryCount, t.MaxRetries, t.TimeoutMs,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTask persists a full row overwrite for an existing task.
func (s *Store) UpdateTask(t *model.Task) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.writeDB.Exec(
		`UPDATE tasks SET status=?, assigned_agent_id=?, started_at=?, completed_at=?,
		                  result=?, error_message=?, retry_count=? WHERE id=?`,
		string(t.Status), nullableString(t.AssignedAgentID), nullableTime(t.StartedAt), nullableTime(t.CompletedAt),
		t.Result, t.ErrorMessage, t.RetryCount, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError("task", t.ID)
	}
	return nil
}

// GetTask loads a single task by id.
func (s *Store) GetTask(id string) (*model.Task, error) {
	row := s.readDB.QueryRow(taskSelect+` WHERE id=?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("task", id)
	}
	return t, err
}

// ListTasks loads every task row.
func (s *Store) ListTasks() ([]*model.Task, error) {
	rows, err := s.readDB.Query(taskSelect + ` ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

const taskSelect = `SELECT id, prompt, required_capabilities, priority, status, assigned_agent_id, depends_on,
	created_at, started_at, completed_at, result, error_message, retry_count, max_retries, timeout_ms FROM tasks`

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t                               model.Task
		status                          string
		capsJSON, depsJSON              string
		assignedAgentID                 sql.NullString
		createdAt                       int64
		startedAt, completedAt          sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Prompt, &capsJSON, &t.Priority, &status, &assignedAgentID, &depsJSON,
		&createdAt, &startedAt, &completedAt, &t.Result, &t.ErrorMessage, &t.RetryCount, &t.MaxRetries, &t.TimeoutMs); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.AssignedAgentID = assignedAgentID.String
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	if startedAt.Valid {
		v := time.Unix(startedAt.Int64, 0).UTC()
		t.StartedAt = &v
	}
	if completedAt.Valid {
		v := time.Unix(completedAt.Int64, 0).UTC()
		t.CompletedAt = &v
	}
	if err := json.Unmarshal([]byte(capsJSON), &t.RequiredCapabilities); err != nil {
		return nil, fmt.Errorf("unmarshal required capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(depsJSON), &t.DependsOn); err != nil {
		return nil, fmt.Errorf("unmarshal depends_on: %w", err)
	}
	return &t, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
