// Copyright 2026 DataChat
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/datachat-io/datachat/pkg/types"
)

// CreateNote inserts n, assigning ID and timestamps when empty.
func (s *Store) CreateNote(ctx context.Context, n *types.Note) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, project_id, title, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.ProjectID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// GetNote fetches a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (*types.Note, error) {
	var n types.Note
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, content, created_at, updated_at
		 FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.ProjectID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning note: %w", err)
	}
	return &n, nil
}

// ListNotes returns the notes of one project, oldest first.
func (s *Store) ListNotes(ctx context.Context, projectID string) ([]*types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, title, content, created_at, updated_at
		 FROM notes WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var out []*types.Note
	for rows.Next() {
		var n types.Note
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.Title, &n.Content,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// UpdateNoteContent replaces a note's content and bumps its update time.
func (s *Store) UpdateNoteContent(ctx context.Context, id, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`,
		content, now(), id)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}
	return requireRow(res)
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return requireRow(res)
}
