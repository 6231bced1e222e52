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

// InsertAgent writes a new agent row. Capabilities and config are stored
// as JSON text, matching spec §4.3's schema.
func (s *Store) InsertAgent(a *model.Agent) error {
	capsJSON, err := json.Marshal(a.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	cfgJSON, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.writeDB.Exec(
		`INSERT INTO agents (id, name, type, capabilities, config, status, lifetime_dispatched, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Type), string(capsJSON), string(cfgJSON), string(a.Status),
		a.LifetimeDispatched, a.CreatedAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// UpdateAgent persists a full row overwrite for an existing agent.
func (s *Store) UpdateAgent(a *model.Agent) error {
	capsJSON, err := json.Marshal(a.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	cfgJSON, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.writeDB.Exec(
		`UPDATE agents SET name=?, type=?, capabilities=?, config=?, status=?, lifetime_dispatched=?, updated_at=?
		 WHERE id=?`,
		a.Name, string(a.Type), string(capsJSON), string(cfgJSON), string(a.Status),
		a.LifetimeDispatched, a.UpdatedAt.Unix(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update agent rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError("agent", a.ID)
	}
	return nil
}

// DeleteAgent removes an agent row.
func (s *Store) DeleteAgent(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.writeDB.Exec(`DELETE FROM agents WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete agent rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError("agent", id)
	}
	return nil
}

// GetAgent loads a single agent by id.
func (s *Store) GetAgent(id string) (*model.Agent, error) {
	row := s.readDB.QueryRow(
		`SELECT id, name, type, capabilities, config, status, lifetime_dispatched, created_at, updated_at
		 FROM agents WHERE id=?`, id,
	)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("agent", id)
	}
	return a, err
}

// ListAgents loads every agent row.
func (s *Store) ListAgents() ([]*model.Agent, error) {
	rows, err := s.readDB.Query(
		`SELECT id, name, type, capabilities, config, status, lifetime_dispatched, created_at, updated_at
		 FROM agents ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*model.Agent, error) {
	var (
		a                        model.Agent
		agentType, status        string
		capsJSON, cfgJSON        string
		createdAt, updatedAt     int64
	)
	if err := row.Scan(&a.ID, &a.Name, &agentType, &capsJSON, &cfgJSON, &status, &a.LifetimeDispatched, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Type = model.AgentType(agentType)
	a.Status = model.AgentStatus(status)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := json.Unmarshal([]byte(capsJSON), &a.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshal capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &a.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &a, nil
}
