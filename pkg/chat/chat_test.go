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

package chat

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/embedding"
	"github.com/datachat-io/datachat/pkg/llm"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/tools/builtin"
	"github.com/datachat-io/datachat/pkg/types"
)

// scriptedProvider replays a fixed sequence of responses. The last response
// repeats once the script is exhausted.
type scriptedProvider struct {
	responses []*llm.Response
	calls     int
	onCall    func()
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }
func (p *scriptedProvider) Chat(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if p.onCall != nil {
		p.onCall()
	}
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return p.responses[i], nil
}

type chatFixture struct {
	chat     *Chat
	store    *store.Store
	lake     datalake.Datalake
	provider *scriptedProvider
	registry *tools.Registry
	stops    *StopRegistry
	conv     *types.Conversation
	db       *types.Database
	events   *[]types.StatusEvent
}

func newFixture(t *testing.T, responses []*llm.Response) *chatFixture {
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

	db := &types.Database{Name: "shop", Engine: types.EngineSQLite}
	require.NoError(t, s.CreateDatabase(ctx, db))

	conv := &types.Conversation{DatabaseID: db.ID}
	require.NoError(t, s.CreateConversation(ctx, conv))

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(builtin.NewSQLQueryTool(lake, s, db.ID)))

	provider := &scriptedProvider{responses: responses}
	var events []types.StatusEvent
	stops := NewStopRegistry(func(e types.StatusEvent) { events = append(events, e) })

	c, err := New(Config{
		Store:    s,
		Cache:    llm.NewCache(s, provider),
		Registry: registry,
		Stops:    stops,
		Lake:     lake,
		Database: db,
	})
	require.NoError(t, err)

	return &chatFixture{
		chat: c, store: s, lake: lake, provider: provider, registry: registry,
		stops: stops, conv: conv, db: db, events: &events,
	}
}

func sqlCall(query, name string) *llm.Response {
	return &llm.Response{FunctionCall: &types.FunctionCall{
		Name:      "SQL_QUERY",
		Arguments: map[string]any{"query": query, "name": name},
	}}
}

func TestAskQueryThenAnswer(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT COUNT(*) AS n FROM users", "user count"),
		{Content: "There are 2 users. DONE"},
	})
	ctx := context.Background()

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "how many users are there?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 4)

	assert.Equal(t, types.RoleUser, log[0].Role)
	assert.True(t, log[0].Display)

	require.NotNil(t, log[1].FunctionCall)
	assert.Equal(t, "SQL_QUERY", log[1].FunctionCall.Name)
	assert.False(t, log[1].Display)
	assert.NotEmpty(t, log[1].QueryID, "the calling message links to the stored query")

	assert.Equal(t, types.RoleFunction, log[2].Role)
	assert.Equal(t, "SQL_QUERY", log[2].Name)
	assert.Equal(t, "Result 1/1:\n```csv\nn\n2\n```", log[2].Content)
	assert.False(t, log[2].Display)

	assert.Equal(t, "There are 2 users.", log[3].Content)
	assert.True(t, log[3].Done)
	assert.True(t, log[3].Display)

	// First question names the conversation.
	conv, err := f.store.GetConversation(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "how many users are there?", conv.Name)

	// Status went running then clear.
	events := *f.events
	require.Len(t, events, 2)
	assert.Equal(t, types.StatusRunning, events[0].Status)
	assert.Equal(t, types.StatusClear, events[1].Status)
}

func TestAskSelfCorrectsAfterQueryError(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT nope FROM missing", ""),
		sqlCall("SELECT COUNT(*) AS n FROM users", ""),
		{Content: "2 users. DONE"},
	})
	ctx := context.Background()

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "count users")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 6)
	assert.Contains(t, log[2].Content, "fix the query and try again")
	assert.Contains(t, log[4].Content, "Result 1/1:")
}

func TestAskUnknownToolIsReportedToModel(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		{FunctionCall: &types.FunctionCall{Name: "NOT_A_TOOL", Arguments: map[string]any{}}},
		{Content: "understood. DONE"},
	})
	ctx := context.Background()

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "do something strange")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Unknown function NOT_A_TOOL.", log[2].Content)
}

func TestAskInvalidArgumentsAreReportedToModel(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		{FunctionCall: &types.FunctionCall{Name: "SQL_QUERY", Arguments: map[string]any{}}},
		sqlCall("SELECT 1 AS x", ""),
		{Content: "done. DONE"},
	})
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, f.conv.ID, "run a query")
	require.NoError(t, err)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Contains(t, log[2].Content, "query")
}

func TestAskMemorySearchDigest(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		{FunctionCall: &types.FunctionCall{
			Name:      "MEMORY_SEARCH",
			Arguments: map[string]any{"search": "test", "n_results": float64(1)},
		}},
		{Content: "Found it. DONE"},
	})
	ctx := context.Background()

	require.NoError(t, f.store.InsertQuery(ctx, &types.Query{
		DatabaseID: f.db.ID, Name: "test 1", ValidatedSQL: "SELECT 1",
		Embedding: []float32{1, 0},
	}))
	require.NoError(t, f.registry.Register(builtin.NewMemorySearchTool(
		f.store, constantEmbedder{}, f.db.ID)))

	_, err := f.chat.Ask(ctx, f.conv.ID, "did we answer this before?")
	require.NoError(t, err)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 results\n- test 1", log[2].Content)
}

type constantEmbedder struct{}

func (constantEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

var _ embedding.Provider = constantEmbedder{}

func TestAskAttemptCeiling(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT 1 AS x", ""),
	})
	ctx := context.Background()

	c, err := New(Config{
		Store:       f.store,
		Cache:       llm.NewCache(f.store, f.provider),
		Registry:    f.registry,
		Stops:       NewStopRegistry(nil),
		Database:    f.db,
		MaxAttempts: 3,
	})
	require.NoError(t, err)

	outcome, err := c.Ask(ctx, f.conv.ID, "loop forever")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIncomplete, outcome)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	// One user message plus a call/result pair per attempt.
	assert.Len(t, log, 1+3*2)
}

func TestAskStopsBetweenSteps(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT 1 AS x", ""),
	})
	ctx := context.Background()
	f.provider.onCall = func() { f.stops.RequestStop(f.conv.ID) }

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "start something long")
	require.NoError(t, err)
	assert.Equal(t, OutcomeStopped, outcome)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	// The in-flight step completes; nothing runs after the checkpoint.
	assert.Len(t, log, 3)
	assert.Equal(t, types.StatusClear, f.stops.Status(f.conv.ID))
}

func TestAskWhileRunningIsRejected(t *testing.T) {
	f := newFixture(t, []*llm.Response{{Content: "hi. DONE"}})
	require.NoError(t, f.stops.Begin(f.conv.ID))

	_, err := f.chat.Ask(context.Background(), f.conv.ID, "second question")
	assert.ErrorIs(t, err, ErrConversationBusy)
}

func TestAskContextCancellation(t *testing.T) {
	f := newFixture(t, []*llm.Response{{Content: "never used"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.chat.Ask(ctx, f.conv.ID, "anything")
	require.Error(t, err)

	events := *f.events
	require.NotEmpty(t, events)
	assert.Equal(t, types.StatusError, events[len(events)-1].Status)
}

func TestIdenticalQuestionsReplayFromCache(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT COUNT(*) AS n FROM users", "count"),
		{Content: "2 users. DONE"},
	})
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, f.conv.ID, "how many users?")
	require.NoError(t, err)
	callsAfterFirst := f.provider.calls

	conv2 := &types.Conversation{DatabaseID: f.db.ID}
	require.NoError(t, f.store.CreateConversation(ctx, conv2))
	outcome, err := f.chat.Ask(ctx, conv2.ID, "how many users?")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, callsAfterFirst, f.provider.calls,
		"an identical conversation must be served from the prediction cache")

	log, err := f.store.ListMessages(ctx, conv2.ID)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, "2 users.", log[3].Content)
}

func TestRegenerateRewindsToLastUserMessage(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT COUNT(*) AS n FROM users", "count"),
		{Content: "2 users. DONE"},
	})
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, f.conv.ID, "how many users?")
	require.NoError(t, err)
	before, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, before, 4)

	outcome, err := f.chat.Regenerate(ctx, f.conv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)

	after, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, after, 4)
	assert.Equal(t, before[0].ID, after[0].ID, "the user message survives")
	assert.NotEqual(t, before[1].ID, after[1].ID, "the assistant turn is rebuilt")
	assert.Equal(t, "2 users.", after[3].Content)
}

func TestRegenerateFromMessage(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT COUNT(*) AS n FROM users", "count"),
		{Content: "2 users. DONE"},
	})
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, f.conv.ID, "how many users?")
	require.NoError(t, err)
	before, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, before, 4)

	// Regenerating from the final assistant message deletes only it.
	_, err = f.chat.Regenerate(ctx, f.conv.ID, before[3].ID)
	require.NoError(t, err)

	after, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, after, 4)
	assert.Equal(t, before[1].ID, after[1].ID, "the tool call survives")
	assert.NotEqual(t, before[3].ID, after[3].ID)
}

func TestRegenerateWithoutUserMessage(t *testing.T) {
	f := newFixture(t, []*llm.Response{{Content: "x"}})
	_, err := f.chat.Regenerate(context.Background(), f.conv.ID, "")
	require.Error(t, err)
}

func TestQueryRecordsUserIssuedCall(t *testing.T) {
	f := newFixture(t, []*llm.Response{{Content: "unused"}})
	ctx := context.Background()

	require.NoError(t, f.chat.Query(ctx, f.conv.ID, "SELECT name FROM users ORDER BY id"))

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.NotNil(t, log[0].FunctionCall)
	assert.Equal(t, "SQL_QUERY", log[0].FunctionCall.Name)
	assert.True(t, log[0].Display)
	assert.NotEmpty(t, log[0].QueryID)
	assert.Equal(t, "Result 2/2:\n```csv\nname\nalice\nbob\n```", log[1].Content)
	assert.Zero(t, f.provider.calls, "no model call happens")
}

func TestQueryErrorBecomesFunctionContent(t *testing.T) {
	f := newFixture(t, []*llm.Response{{Content: "unused"}})
	ctx := context.Background()

	require.NoError(t, f.chat.Query(ctx, f.conv.ID, "SELECT nope FROM missing"))

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Contains(t, log[1].Content, "fix the query and try again")
}

func TestRunQueryReplaysStoredQuery(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		sqlCall("SELECT name FROM users ORDER BY id", "names"),
		{Content: "alice and bob. DONE"},
	})
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, f.conv.ID, "list user names")
	require.NoError(t, err)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	rendered, err := f.chat.RunQuery(ctx, log[1].QueryID)
	require.NoError(t, err)
	assert.Equal(t, "Result 2/2:\n```csv\nname\nalice\nbob\n```", rendered)
}

func TestSubmitToolEndsLoop(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		{FunctionCall: &types.FunctionCall{Name: "SUBMIT", Arguments: map[string]any{
			"query": "SELECT COUNT(*) FROM users",
			"name":  "user count",
		}}},
	})
	require.NoError(t, f.registry.Register(builtin.NewSubmitTool(f.store, f.db.ID, nil)))
	ctx := context.Background()

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "submit it")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, 1, f.provider.calls)

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "Submitted.", log[2].Content)
	require.NotEmpty(t, log[1].QueryID)

	q, err := f.store.GetQuery(ctx, log[1].QueryID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM users", q.ValidatedSQL)
}

func TestPlotWidgetEndsLoop(t *testing.T) {
	f := newFixture(t, []*llm.Response{
		{FunctionCall: &types.FunctionCall{Name: "PLOT_WIDGET", Arguments: map[string]any{
			"query":        "SELECT name, id FROM users ORDER BY id",
			"type":         "bar",
			"label_column": "name",
			"value_column": "id",
		}}},
		{Content: "never reached. DONE"},
	})
	require.NoError(t, f.registry.Register(builtin.NewPlotWidgetTool(f.lake, nil)))
	ctx := context.Background()

	outcome, err := f.chat.Ask(ctx, f.conv.ID, "plot the users")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDone, outcome)
	assert.Equal(t, 1, f.provider.calls, "displaying the chart ends the turn")

	log, err := f.store.ListMessages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "Widget displayed to the user.", log[2].Content)
	assert.NotEmpty(t, log[2].Image)
}
