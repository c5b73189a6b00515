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

package builtin

import (
	"context"
	"fmt"

	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// SubmitTool persists the model's finalized query and ends the loop
// without producing another text turn.
type SubmitTool struct {
	store      *store.Store
	databaseID string
	onSubmit   func(ctx context.Context, q *types.Query) error
}

var _ tools.Tool = (*SubmitTool)(nil)

// NewSubmitTool creates the SUBMIT tool. onSubmit may be nil.
func NewSubmitTool(s *store.Store, databaseID string, onSubmit func(ctx context.Context, q *types.Query) error) *SubmitTool {
	return &SubmitTool{store: s, databaseID: databaseID, onSubmit: onSubmit}
}

func (t *SubmitTool) Name() string { return "SUBMIT" }

func (t *SubmitTool) Description() string {
	return "Submit the finalized SQL query as the result and end the exchange."
}

func (t *SubmitTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"query": tools.NewStringSchema("the finalized SQL statement"),
		"name":  tools.NewStringSchema("a short name describing the query"),
	}, []string{"query"})
}

func (t *SubmitTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	sqlText := tools.String(args, "query")
	if sqlText == "" {
		return nil, fmt.Errorf("query is empty")
	}

	q := &types.Query{
		Name:         tools.String(args, "name"),
		DatabaseID:   t.databaseID,
		ValidatedSQL: sqlText,
	}
	if err := t.store.InsertQuery(ctx, q); err != nil {
		return nil, err
	}
	if t.onSubmit != nil {
		if err := t.onSubmit(ctx, q); err != nil {
			return nil, err
		}
	}

	return &tools.Result{
		Content:  "Submitted.",
		QueryID:  q.ID,
		StopLoop: true,
	}, nil
}
