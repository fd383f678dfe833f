// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quiver-ui/quiver/internal/dbinterface"
	"github.com/quiver-ui/quiver/internal/table"
)

// ColumnStateRecord is the persisted layout of one table: per-column
// visibility and widths plus the active sort. Read at mount, written on
// every change.
type ColumnStateRecord struct {
	TableID   string            `json:"tableId"`
	State     table.ColumnState `json:"state"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type ColumnStateStore struct {
	db dbinterface.Querier
}

func NewColumnStateStore(db dbinterface.Querier) *ColumnStateStore {
	return &ColumnStateStore{db: db}
}

// Get returns the stored state for a table, seeding defaults derived from
// the column descriptors when none exists yet.
func (s *ColumnStateStore) Get(ctx context.Context, tableID string, columns []table.Column) (*ColumnStateRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT table_id, visibility, widths, sort_column, sort_direction, created_at, updated_at
		FROM column_states
		WHERE table_id = ?
	`, tableID)

	var rec ColumnStateRecord
	var visibilityJSON, widthsJSON, sortDirection string

	err := row.Scan(&rec.TableID, &visibilityJSON, &widthsJSON, &rec.State.SortColumn, &sortDirection, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s.createDefault(ctx, tableID, columns)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load column state for %q: %w", tableID, err)
	}

	rec.State.SortDirection = table.SortDirection(sortDirection)

	if err := json.Unmarshal([]byte(visibilityJSON), &rec.State.Visibility); err != nil {
		rec.State.Visibility = table.DefaultColumnState(columns).Visibility
	}
	if err := json.Unmarshal([]byte(widthsJSON), &rec.State.Widths); err != nil {
		rec.State.Widths = table.DefaultColumnState(columns).Widths
	}

	return &rec, nil
}

// Save upserts the state for a table.
func (s *ColumnStateStore) Save(ctx context.Context, tableID string, state table.ColumnState) error {
	visibilityJSON, err := json.Marshal(state.Visibility)
	if err != nil {
		return fmt.Errorf("failed to marshal visibility: %w", err)
	}
	widthsJSON, err := json.Marshal(state.Widths)
	if err != nil {
		return fmt.Errorf("failed to marshal widths: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO column_states (table_id, visibility, widths, sort_column, sort_direction, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(table_id) DO UPDATE SET
			visibility = excluded.visibility,
			widths = excluded.widths,
			sort_column = excluded.sort_column,
			sort_direction = excluded.sort_direction,
			updated_at = CURRENT_TIMESTAMP
	`, tableID, string(visibilityJSON), string(widthsJSON), state.SortColumn, string(state.SortDirection))
	if err != nil {
		return fmt.Errorf("failed to save column state for %q: %w", tableID, err)
	}

	return nil
}

func (s *ColumnStateStore) createDefault(ctx context.Context, tableID string, columns []table.Column) (*ColumnStateRecord, error) {
	state := table.DefaultColumnState(columns)
	if err := s.Save(ctx, tableID, state); err != nil {
		return nil, err
	}

	now := time.Now()
	return &ColumnStateRecord{
		TableID:   tableID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
