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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/datachat-io/datachat/pkg/types"
)

// CreateDatabase inserts db, assigning ID and CreatedAt when empty.
func (s *Store) CreateDatabase(ctx context.Context, db *types.Database) error {
	if db.ID == "" {
		db.ID = newID()
	}
	if db.CreatedAt.IsZero() {
		db.CreatedAt = now()
	}
	details, err := json.Marshal(db.Details)
	if err != nil {
		return fmt.Errorf("encoding details: %w", err)
	}
	metadata, err := json.Marshal(db.TablesMetadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO databases (id, name, description, engine, details, safe_mode,
			privacy_mode, memory, tables_metadata, dbt_catalog, dbt_manifest,
			owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.ID, db.Name, db.Description, string(db.Engine), string(details),
		db.SafeMode, db.PrivacyMode, db.Memory, string(metadata),
		db.DBTCatalog, db.DBTManifest, db.OwnerID, db.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting database: %w", err)
	}
	return nil
}

// GetDatabase fetches a database by id.
func (s *Store) GetDatabase(ctx context.Context, id string) (*types.Database, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, engine, details, safe_mode, privacy_mode,
			memory, tables_metadata, dbt_catalog, dbt_manifest, owner_id, created_at
		 FROM databases WHERE id = ?`, id)
	return scanDatabase(row)
}

// ListDatabases returns every stored database, newest first.
func (s *Store) ListDatabases(ctx context.Context) ([]*types.Database, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, engine, details, safe_mode, privacy_mode,
			memory, tables_metadata, dbt_catalog, dbt_manifest, owner_id, created_at
		 FROM databases ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing databases: %w", err)
	}
	defer rows.Close()

	var out []*types.Database
	for rows.Next() {
		db, err := scanDatabase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, db)
	}
	return out, rows.Err()
}

// UpdateDatabaseMemory replaces the database's long-term memory text.
func (s *Store) UpdateDatabaseMemory(ctx context.Context, id, memory string) error {
	return s.updateDatabaseField(ctx, id, "memory", memory)
}

// SetDatabaseMetadata caches the schema description loaded from the source.
func (s *Store) SetDatabaseMetadata(ctx context.Context, id string, tables []types.TableMetadata) error {
	b, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	return s.updateDatabaseField(ctx, id, "tables_metadata", string(b))
}

// SetDBTArtifacts stores the dbt catalog and manifest documents.
func (s *Store) SetDBTArtifacts(ctx context.Context, id string, catalog, manifest []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE databases SET dbt_catalog = ?, dbt_manifest = ? WHERE id = ?`,
		catalog, manifest, id)
	if err != nil {
		return fmt.Errorf("updating dbt artifacts: %w", err)
	}
	return requireRow(res)
}

// DeleteDatabase removes a database record.
func (s *Store) DeleteDatabase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM databases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting database: %w", err)
	}
	return requireRow(res)
}

func (s *Store) updateDatabaseField(ctx context.Context, id, field, value string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE databases SET %s = ? WHERE id = ?`, field), value, id)
	if err != nil {
		return fmt.Errorf("updating database %s: %w", field, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDatabase(row rowScanner) (*types.Database, error) {
	var (
		db       types.Database
		engine   string
		details  string
		metadata string
	)
	err := row.Scan(&db.ID, &db.Name, &db.Description, &engine, &details,
		&db.SafeMode, &db.PrivacyMode, &db.Memory, &metadata,
		&db.DBTCatalog, &db.DBTManifest, &db.OwnerID, &db.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning database: %w", err)
	}
	db.Engine = types.Engine(engine)
	if details != "" {
		if err := json.Unmarshal([]byte(details), &db.Details); err != nil {
			return nil, fmt.Errorf("decoding details: %w", err)
		}
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &db.TablesMetadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	return &db, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
