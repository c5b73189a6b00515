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
	"strings"

	"github.com/datachat-io/datachat/pkg/embedding"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
)

// SaveToMemoryTool appends a fact to the database's long-term memory. The
// memory text is included in the system prompt of every later conversation.
type SaveToMemoryTool struct {
	store      *store.Store
	databaseID string
}

var _ tools.Tool = (*SaveToMemoryTool)(nil)

// NewSaveToMemoryTool creates the SAVE_TO_MEMORY tool.
func NewSaveToMemoryTool(s *store.Store, databaseID string) *SaveToMemoryTool {
	return &SaveToMemoryTool{store: s, databaseID: databaseID}
}

func (t *SaveToMemoryTool) Name() string { return "SAVE_TO_MEMORY" }

func (t *SaveToMemoryTool) Description() string {
	return "Store a durable fact about this database for use in future conversations."
}

func (t *SaveToMemoryTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"content": tools.NewStringSchema("the fact to remember, one short sentence"),
	}, []string{"content"})
}

func (t *SaveToMemoryTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	content := strings.TrimSpace(tools.String(args, "content"))
	if content == "" {
		return nil, fmt.Errorf("content is empty")
	}
	db, err := t.store.GetDatabase(ctx, t.databaseID)
	if err != nil {
		return nil, err
	}
	memory := db.Memory
	if memory != "" {
		memory += "\n"
	}
	memory += content
	if err := t.store.UpdateDatabaseMemory(ctx, t.databaseID, memory); err != nil {
		return nil, err
	}
	return &tools.Result{Content: "Saved."}, nil
}

// MemorySearchTool finds previously validated queries whose embedding is
// close to the search text.
type MemorySearchTool struct {
	store      *store.Store
	provider   embedding.Provider
	databaseID string
}

var _ tools.Tool = (*MemorySearchTool)(nil)

// NewMemorySearchTool creates the MEMORY_SEARCH tool.
func NewMemorySearchTool(s *store.Store, provider embedding.Provider, databaseID string) *MemorySearchTool {
	return &MemorySearchTool{store: s, provider: provider, databaseID: databaseID}
}

func (t *MemorySearchTool) Name() string { return "MEMORY_SEARCH" }

func (t *MemorySearchTool) Description() string {
	return "Search past validated queries by meaning and return the closest matches."
}

func (t *MemorySearchTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"search":    tools.NewStringSchema("what to look for"),
		"n_results": tools.NewIntegerSchema("number of results to return").WithDefault(3),
	}, []string{"search"})
}

func (t *MemorySearchTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	search := tools.String(args, "search")
	if search == "" {
		return nil, fmt.Errorf("search is empty")
	}
	n := tools.Int(args, "n_results")
	if n <= 0 {
		n = 3
	}

	needle, err := t.provider.Embed(ctx, search)
	if err != nil {
		return nil, err
	}
	queries, err := t.store.ListEmbeddedQueries(ctx, t.databaseID)
	if err != nil {
		return nil, err
	}
	closest := embedding.SearchClosest(needle, queries, n)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d results", len(closest))
	for _, q := range closest {
		name := q.Name
		if name == "" {
			name = q.ValidatedSQL
		}
		sb.WriteString("\n- " + name)
	}
	return &tools.Result{Content: sb.String()}, nil
}
