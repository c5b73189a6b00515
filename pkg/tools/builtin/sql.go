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

// Package builtin provides the standard tool set of the conversation loop.
package builtin

import (
	"context"
	"fmt"

	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/resultshape"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// SQLQueryTool executes SQL against the conversation's database and records
// the statement as a reusable query.
type SQLQueryTool struct {
	lake       datalake.Datalake
	store      *store.Store
	databaseID string
}

var _ tools.Tool = (*SQLQueryTool)(nil)

// NewSQLQueryTool creates the SQL_QUERY tool.
func NewSQLQueryTool(lake datalake.Datalake, s *store.Store, databaseID string) *SQLQueryTool {
	return &SQLQueryTool{lake: lake, store: s, databaseID: databaseID}
}

func (t *SQLQueryTool) Name() string { return "SQL_QUERY" }

func (t *SQLQueryTool) Description() string {
	return "Execute a SQL query against the database and return the resulting rows as CSV."
}

func (t *SQLQueryTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"query": tools.NewStringSchema("the SQL statement to execute"),
		"name":  tools.NewStringSchema("a short name describing what the query answers"),
	}, []string{"query"})
}

func (t *SQLQueryTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	sqlText := tools.String(args, "query")
	if sqlText == "" {
		return nil, fmt.Errorf("query is empty")
	}

	res, err := t.lake.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	q := &types.Query{
		Name:         tools.String(args, "name"),
		DatabaseID:   t.databaseID,
		ValidatedSQL: sqlText,
	}
	if err := t.store.InsertQuery(ctx, q); err != nil {
		return nil, err
	}

	return &tools.Result{
		Content: resultshape.RenderResult(res),
		QueryID: q.ID,
	}, nil
}
