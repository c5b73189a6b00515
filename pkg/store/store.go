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

// Package store persists the application state (databases, conversations,
// queries, predictions, projects, notes) in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/datachat-io/datachat/internal/sqlitedriver"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the SQLite-backed persistence layer. All methods are safe for
// concurrent use; SQLite serializes writers via the busy timeout.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS databases (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			engine          TEXT NOT NULL,
			details         TEXT NOT NULL DEFAULT '{}',
			safe_mode       INTEGER NOT NULL DEFAULT 0,
			privacy_mode    INTEGER NOT NULL DEFAULT 0,
			memory          TEXT NOT NULL DEFAULT '',
			tables_metadata TEXT NOT NULL DEFAULT '',
			dbt_catalog     BLOB,
			dbt_manifest    BLOB,
			owner_id        TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL DEFAULT '',
			owner_id    TEXT NOT NULL DEFAULT '',
			database_id TEXT NOT NULL,
			project_id  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			name            TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL DEFAULT '',
			function_call   TEXT,
			query_id        TEXT NOT NULL DEFAULT '',
			image           BLOB,
			done            INTEGER NOT NULL DEFAULT 0,
			display         INTEGER NOT NULL DEFAULT 1,
			created_at      TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages (conversation_id)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			database_id   TEXT NOT NULL,
			validated_sql TEXT NOT NULL,
			embedding     BLOB,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_database
			ON queries (database_id)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id          TEXT PRIMARY KEY,
			params_hash TEXT NOT NULL,
			model_name  TEXT NOT NULL,
			prompt      TEXT NOT NULL DEFAULT '',
			response    BLOB,
			output      TEXT NOT NULL DEFAULT '',
			value       BLOB,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_predictions_hash
			ON predictions (params_hash, model_name)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			database_id TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

func newID() string { return uuid.NewString() }

func now() time.Time { return time.Now().UTC() }
