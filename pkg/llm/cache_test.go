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

package llm

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/types"
)

type countingProvider struct {
	calls    int
	response *Response
	lastReq  *Request
}

func (p *countingProvider) Name() string  { return "counting" }
func (p *countingProvider) Model() string { return "test-model" }
func (p *countingProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	p.calls++
	p.lastReq = req
	return p.response, nil
}

func newTestCache(t *testing.T, resp *Response) (*Cache, *countingProvider) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	p := &countingProvider{response: resp}
	return NewCache(s, p), p
}

func userMessage(content string) *types.Message {
	return &types.Message{Role: types.RoleUser, Content: content}
}

func TestCacheCallsProviderOncePerInput(t *testing.T) {
	cache, p := newTestCache(t, &Response{Content: "There are 42 users."})
	ctx := context.Background()
	req := &Request{Messages: []*types.Message{userMessage("how many users?")}}

	first, err := cache.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "There are 42 users.", first.Content)
	assert.Equal(t, 1, p.calls)

	second, err := cache.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, p.calls, "second fetch must replay the stored response")
}

func TestCacheMissOnDifferentHistory(t *testing.T) {
	cache, p := newTestCache(t, &Response{Content: "ok"})
	ctx := context.Background()

	_, err := cache.Fetch(ctx, &Request{Messages: []*types.Message{userMessage("a")}})
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, &Request{Messages: []*types.Message{userMessage("b")}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestCacheMissOnDifferentSystem(t *testing.T) {
	cache, p := newTestCache(t, &Response{Content: "ok"})
	ctx := context.Background()
	msgs := []*types.Message{userMessage("a")}

	_, err := cache.Fetch(ctx, &Request{System: "one", Messages: msgs})
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, &Request{System: "two", Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestCacheShapesContentBeforeSendingAndHashing(t *testing.T) {
	cache, p := newTestCache(t, &Response{Content: "ok"})
	ctx := context.Background()

	raw := "```json\n[{\"a\": 1}]\n```"
	shaped := "```csv\na\n1\n```"

	_, err := cache.Fetch(ctx, &Request{Messages: []*types.Message{userMessage(raw)}})
	require.NoError(t, err)
	require.NotNil(t, p.lastReq)
	assert.Equal(t, shaped, p.lastReq.Messages[0].Content)

	// The pre-shaped equivalent must hit the same cache entry.
	_, err = cache.Fetch(ctx, &Request{Messages: []*types.Message{userMessage(shaped)}})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestCacheDoesNotMutateCallerMessages(t *testing.T) {
	cache, _ := newTestCache(t, &Response{Content: "ok"})
	msg := userMessage("```json\n[{\"a\": 1}]\n```")

	_, err := cache.Fetch(context.Background(), &Request{Messages: []*types.Message{msg}})
	require.NoError(t, err)
	assert.Equal(t, "```json\n[{\"a\": 1}]\n```", msg.Content)
}

func TestCachePreservesFunctionCall(t *testing.T) {
	cache, p := newTestCache(t, &Response{
		FunctionCall: &types.FunctionCall{
			Name:      "SQL_QUERY",
			Arguments: map[string]any{"query": "SELECT 1"},
		},
	})
	ctx := context.Background()
	req := &Request{Messages: []*types.Message{userMessage("run it")}}

	_, err := cache.Fetch(ctx, req)
	require.NoError(t, err)

	replayed, err := cache.Fetch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	require.NotNil(t, replayed.FunctionCall)
	assert.Equal(t, "SQL_QUERY", replayed.FunctionCall.Name)
	assert.Equal(t, "SELECT 1", replayed.FunctionCall.Arguments["query"])
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "mistral", Model: "m"})
	require.Error(t, err)
}

func TestFactoryRequiresModel(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAI})
	require.Error(t, err)
}

func TestFactoryOpenAI(t *testing.T) {
	p, err := New(Config{Provider: ProviderOpenAI, Model: "gpt-4", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.Equal(t, "gpt-4", p.Model())
}

func TestFactoryAnthropic(t *testing.T) {
	p, err := New(Config{Provider: ProviderAnthropic, Model: "claude-sonnet-4-5", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p.Name())
}
