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

// GetPrediction fetches a cached model response by message-list hash and
// model name.
func (s *Store) GetPrediction(ctx context.Context, paramsHash, modelName string) (*types.Prediction, error) {
	var p types.Prediction
	err := s.db.QueryRowContext(ctx,
		`SELECT id, params_hash, model_name, prompt, response, output, value, created_at
		 FROM predictions WHERE params_hash = ? AND model_name = ?`,
		paramsHash, modelName).
		Scan(&p.ID, &p.ParamsHash, &p.ModelName, &p.Prompt, &p.Response,
			&p.Output, &p.Value, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning prediction: %w", err)
	}
	return &p, nil
}

// InsertPrediction stores a model response for later replay. A concurrent
// insert of the same hash wins silently; the responses are identical by
// construction.
func (s *Store) InsertPrediction(ctx context.Context, p *types.Prediction) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, params_hash, model_name, prompt, response,
			output, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (params_hash, model_name) DO NOTHING`,
		p.ID, p.ParamsHash, p.ModelName, p.Prompt, p.Response, p.Output,
		p.Value, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting prediction: %w", err)
	}
	return nil
}
