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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachat-io/datachat/pkg/chart"
	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/embedding"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

func testFixtures(t *testing.T) (*store.Store, datalake.Datalake, string) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	lake, err := datalake.Open(types.EngineSQLite, map[string]string{
		"filename": filepath.Join(t.TempDir(), "data.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { lake.Close() })

	_, err = lake.Query(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = lake.Query(ctx, `INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob')`)
	require.NoError(t, err)

	db := &types.Database{Name: "test", Engine: types.EngineSQLite}
	require.NoError(t, s.CreateDatabase(ctx, db))
	return s, lake, db.ID
}

func TestSQLQueryToolExecutesAndRecordsQuery(t *testing.T) {
	s, lake, dbID := testFixtures(t)
	tool := NewSQLQueryTool(lake, s, dbID)

	res, err := tool.Execute(context.Background(), map[string]any{
		"query": "SELECT name FROM users ORDER BY id",
		"name":  "user names",
	})
	require.NoError(t, err)
	assert.Equal(t, "Result 2/2:\n```csv\nname\nalice\nbob\n```", res.Content)
	require.NotEmpty(t, res.QueryID)

	q, err := s.GetQuery(context.Background(), res.QueryID)
	require.NoError(t, err)
	assert.Equal(t, "user names", q.Name)
	assert.Equal(t, "SELECT name FROM users ORDER BY id", q.ValidatedSQL)
}

func TestSQLQueryToolPropagatesErrors(t *testing.T) {
	s, lake, dbID := testFixtures(t)
	tool := NewSQLQueryTool(lake, s, dbID)

	_, err := tool.Execute(context.Background(), map[string]any{"query": "SELECT nope FROM missing"})
	require.Error(t, err)

	// A failed query must not be recorded.
	queries, err := s.ListQueriesMissingEmbedding(context.Background(), dbID)
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestSaveToMemoryAppendsLines(t *testing.T) {
	s, _, dbID := testFixtures(t)
	tool := NewSaveToMemoryTool(s, dbID)
	ctx := context.Background()

	_, err := tool.Execute(ctx, map[string]any{"content": "amounts are in cents"})
	require.NoError(t, err)
	_, err = tool.Execute(ctx, map[string]any{"content": "users.name is unique"})
	require.NoError(t, err)

	db, err := s.GetDatabase(ctx, dbID)
	require.NoError(t, err)
	assert.Equal(t, "amounts are in cents\nusers.name is unique", db.Memory)
}

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func TestMemorySearchDigest(t *testing.T) {
	s, _, dbID := testFixtures(t)
	ctx := context.Background()

	q := &types.Query{DatabaseID: dbID, Name: "test 1", ValidatedSQL: "SELECT 1",
		Embedding: []float32{1, 0}}
	require.NoError(t, s.InsertQuery(ctx, q))
	require.NoError(t, s.InsertQuery(ctx, &types.Query{
		DatabaseID: dbID, Name: "far away", ValidatedSQL: "SELECT 2",
		Embedding: []float32{100, 100},
	}))

	tool := NewMemorySearchTool(s, &fixedEmbedder{
		vectors: map[string][]float32{"test": {1, 0.1}},
	}, dbID)

	res, err := tool.Execute(ctx, map[string]any{"search": "test", "n_results": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, "1 results\n- test 1", res.Content)
}

func TestMemorySearchDefaultCount(t *testing.T) {
	s, _, dbID := testFixtures(t)
	tool := NewMemorySearchTool(s, &fixedEmbedder{}, dbID)

	res, err := tool.Execute(context.Background(), map[string]any{"search": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "0 results", res.Content)
}

func TestPlotWidgetBuildsSpec(t *testing.T) {
	_, lake, _ := testFixtures(t)
	tool := NewPlotWidgetTool(lake, nil)

	res, err := tool.Execute(context.Background(), map[string]any{
		"query":        "SELECT name, id FROM users ORDER BY id",
		"type":         "bar",
		"label_column": "name",
		"value_column": "id",
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget displayed to the user.", res.Content)
	assert.True(t, res.StopLoop, "displaying a widget ends the turn")
	assert.JSONEq(t,
		`{"type":"bar","series":[{"points":[{"label":"alice","value":1},{"label":"bob","value":2}]}]}`,
		string(res.Image))
}

// pngRenderer is a hand mock for the external chart capability.
type pngRenderer struct {
	spec *chart.Spec
}

func (r *pngRenderer) Render(spec *chart.Spec) ([]byte, error) {
	r.spec = spec
	return []byte("png-bytes"), nil
}

func TestPlotWidgetRendersThroughRenderer(t *testing.T) {
	_, lake, _ := testFixtures(t)
	renderer := &pngRenderer{}
	tool := NewPlotWidgetTool(lake, renderer)

	res, err := tool.Execute(context.Background(), map[string]any{
		"query":        "SELECT name, id FROM users ORDER BY id",
		"type":         "line",
		"label_column": "name",
		"value_column": "id",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), res.Image)
	require.NotNil(t, renderer.spec)
	assert.Equal(t, chart.KindLine, renderer.spec.Type)
}

func TestSubmitPersistsQueryAndStopsLoop(t *testing.T) {
	s, _, dbID := testFixtures(t)
	ctx := context.Background()
	var submitted *types.Query
	tool := NewSubmitTool(s, dbID, func(ctx context.Context, q *types.Query) error {
		submitted = q
		return nil
	})

	res, err := tool.Execute(ctx, map[string]any{
		"query": "SELECT COUNT(*) FROM users",
		"name":  "final user count",
	})
	require.NoError(t, err)
	assert.True(t, res.StopLoop)
	assert.Equal(t, "Submitted.", res.Content)
	require.NotEmpty(t, res.QueryID)

	q, err := s.GetQuery(ctx, res.QueryID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM users", q.ValidatedSQL)
	assert.Equal(t, "final user count", q.Name)
	assert.Equal(t, dbID, q.DatabaseID)
	require.NotNil(t, submitted)
	assert.Equal(t, res.QueryID, submitted.ID)
}

func TestSubmitRequiresQuery(t *testing.T) {
	s, _, dbID := testFixtures(t)
	tool := NewSubmitTool(s, dbID, nil)
	_, err := tool.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestNoteLifecycle(t *testing.T) {
	s, _, _ := testFixtures(t)
	ctx := context.Background()
	registry := tools.NewRegistry()
	require.NoError(t, AttachNoteTools(registry, s, "proj1"))
	assert.Equal(t, 5, registry.Len())

	create, _ := registry.Get("NOTE_CREATE")
	res, err := create.Execute(ctx, map[string]any{"title": "findings"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "findings")

	notes, err := s.ListNotes(ctx, "proj1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	noteID := notes[0].ID

	// NOTE_WRITE only exists while a note is open.
	_, ok := registry.Get("NOTE_WRITE")
	assert.False(t, ok)

	open, _ := registry.Get("NOTE_OPEN")
	_, err = open.Execute(ctx, map[string]any{"note_id": noteID})
	require.NoError(t, err)
	write, ok := registry.Get("NOTE_WRITE")
	require.True(t, ok)

	_, err = write.Execute(ctx, map[string]any{"content": "the answer is 42"})
	require.NoError(t, err)
	n, err := s.GetNote(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", n.Content)

	closeTool, _ := registry.Get("NOTE_CLOSE")
	_, err = closeTool.Execute(ctx, nil)
	require.NoError(t, err)
	_, ok = registry.Get("NOTE_WRITE")
	assert.False(t, ok)
}

func TestNoteDeleteClosesOpenNote(t *testing.T) {
	s, _, _ := testFixtures(t)
	ctx := context.Background()
	registry := tools.NewRegistry()
	require.NoError(t, AttachNoteTools(registry, s, "proj1"))

	n := &types.Note{ProjectID: "proj1", Title: "tmp"}
	require.NoError(t, s.CreateNote(ctx, n))

	open, _ := registry.Get("NOTE_OPEN")
	_, err := open.Execute(ctx, map[string]any{"note_id": n.ID})
	require.NoError(t, err)

	del, _ := registry.Get("NOTE_DELETE")
	_, err = del.Execute(ctx, map[string]any{"note_id": n.ID})
	require.NoError(t, err)
	_, ok := registry.Get("NOTE_WRITE")
	assert.False(t, ok)
}

const testManifest = `{
  "nodes": {
    "model.shop.orders_daily": {
      "name": "orders_daily",
      "resource_type": "model",
      "description": "Daily order rollup",
      "original_file_path": "models/orders_daily.sql",
      "raw_code": "SELECT date, COUNT(*) FROM orders GROUP BY date"
    },
    "seed.shop.countries": {
      "name": "countries",
      "resource_type": "seed"
    }
  }
}`

const testCatalog = `{
  "nodes": {
    "model.shop.orders_daily": {
      "columns": {
        "date": {"type": "date", "comment": "order day"},
        "count": {"type": "bigint", "comment": ""}
      }
    }
  }
}`

func TestDBTTools(t *testing.T) {
	ctx := context.Background()
	registry := tools.NewRegistry()
	db := &types.Database{
		DBTManifest: []byte(testManifest),
		DBTCatalog:  []byte(testCatalog),
	}
	require.NoError(t, AttachDBTTools(registry, db))
	assert.Equal(t, 3, registry.Len())

	list, _ := registry.Get("DBT_MODEL_LIST")
	res, err := list.Execute(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "1 models\n- orders_daily: Daily order rollup", res.Content)

	search, _ := registry.Get("DBT_SEARCH_MODELS")
	res, err = search.Execute(ctx, map[string]any{"search": "rollup"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "orders_daily")
	res, err = search.Execute(ctx, map[string]any{"search": "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, "No models.", res.Content)

	fetch, _ := registry.Get("DBT_FETCH_MODEL")
	res, err = fetch.Execute(ctx, map[string]any{"name": "orders_daily"})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "models/orders_daily.sql")
	assert.Contains(t, res.Content, "- date date: order day")
	assert.Contains(t, res.Content, "```sql\nSELECT date, COUNT(*) FROM orders GROUP BY date\n```")

	_, err = fetch.Execute(ctx, map[string]any{"name": "missing"})
	require.Error(t, err)
}

func TestDBTToolsSkippedWithoutManifest(t *testing.T) {
	registry := tools.NewRegistry()
	require.NoError(t, AttachDBTTools(registry, &types.Database{}))
	assert.Equal(t, 0, registry.Len())
}

var _ embedding.Provider = (*fixedEmbedder)(nil)
