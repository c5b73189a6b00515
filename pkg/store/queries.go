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
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/datachat-io/datachat/pkg/types"
)

// InsertQuery persists a validated SQL statement.
func (s *Store) InsertQuery(ctx context.Context, q *types.Query) error {
	if q.ID == "" {
		q.ID = newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, name, database_id, validated_sql, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Name, q.DatabaseID, q.ValidatedSQL, encodeEmbedding(q.Embedding), q.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting query: %w", err)
	}
	return nil
}

// GetQuery fetches a query by id.
func (s *Store) GetQuery(ctx context.Context, id string) (*types.Query, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, database_id, validated_sql, embedding, created_at
		 FROM queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// SetQueryEmbedding attaches an embedding vector to a stored query.
func (s *Store) SetQueryEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queries SET embedding = ? WHERE id = ?`, encodeEmbedding(embedding), id)
	if err != nil {
		return fmt.Errorf("updating query embedding: %w", err)
	}
	return requireRow(res)
}

// ListEmbeddedQueries returns the queries of a database that carry an
// embedding, ordered by insertion so distance ties resolve deterministically.
func (s *Store) ListEmbeddedQueries(ctx context.Context, databaseID string) ([]*types.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, name, database_id, validated_sql, embedding, created_at
		 FROM queries WHERE database_id = ? AND embedding IS NOT NULL
		 ORDER BY rowid`, databaseID)
}

// ListQueriesMissingEmbedding returns queries awaiting an embedding backfill.
func (s *Store) ListQueriesMissingEmbedding(ctx context.Context, databaseID string) ([]*types.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, name, database_id, validated_sql, embedding, created_at
		 FROM queries WHERE database_id = ? AND embedding IS NULL
		 ORDER BY rowid`, databaseID)
}

func (s *Store) listQueries(ctx context.Context, query string, args ...any) ([]*types.Query, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	var out []*types.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanQuery(row rowScanner) (*types.Query, error) {
	var (
		q   types.Query
		emb []byte
	)
	err := row.Scan(&q.ID, &q.Name, &q.DatabaseID, &q.ValidatedSQL, &emb, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning query: %w", err)
	}
	q.Embedding = decodeEmbedding(emb)
	return &q, nil
}

// Embeddings are stored as little-endian float32 blobs.

func encodeEmbedding(v []float32) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
