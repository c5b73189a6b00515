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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/datachat-io/datachat/internal/log"
	"github.com/datachat-io/datachat/pkg/resultshape"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/types"
)

// Cache replays stored model responses for previously seen requests. The
// cache key is a hash of the exact shaped message list, so any change to
// the history produces a fresh call. Two identical requests always yield
// the same response bytes.
type Cache struct {
	store    *store.Store
	provider Provider
}

// NewCache wraps provider with the prediction store.
func NewCache(s *store.Store, provider Provider) *Cache {
	return &Cache{store: s, provider: provider}
}

// Provider returns the wrapped provider.
func (c *Cache) Provider() Provider { return c.provider }

// Fetch shapes the request, replays a stored response when one exists, and
// otherwise calls the provider and stores the result.
func (c *Cache) Fetch(ctx context.Context, req *Request) (*Response, error) {
	shaped := shapeRequest(req)
	canonical, err := canonicalRequest(c.provider.Model(), shaped)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	hash := hex.EncodeToString(sum[:])

	if p, err := c.store.GetPrediction(ctx, hash, c.provider.Model()); err == nil {
		var resp Response
		if err := json.Unmarshal(p.Value, &resp); err != nil {
			return nil, fmt.Errorf("decoding cached prediction: %w", err)
		}
		log.Debug("prediction cache hit", zap.String("hash", hash))
		return &resp, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	log.Debug("prediction cache miss",
		zap.String("hash", hash),
		zap.Int("prompt_tokens", resultshape.EstimateTokens(string(canonical), c.provider.Model())))
	resp, err := c.provider.Chat(ctx, shaped)
	if err != nil {
		return nil, err
	}
	value, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding prediction: %w", err)
	}
	if err := c.store.InsertPrediction(ctx, &types.Prediction{
		ParamsHash: hash,
		ModelName:  c.provider.Model(),
		Prompt:     string(canonical),
		Response:   resp.Raw,
		Output:     resp.Content,
		Value:      value,
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// shapeRequest returns a copy of req with every message content passed
// through the JSON-to-CSV rewrite. The shaped copy is both what gets
// hashed and what gets sent, so cache keys and provider input agree.
func shapeRequest(req *Request) *Request {
	shaped := &Request{System: req.System, Tools: req.Tools}
	shaped.Messages = make([]*types.Message, len(req.Messages))
	for i, m := range req.Messages {
		cp := *m
		cp.Content = resultshape.ReplaceJSONBlocks(cp.Content)
		shaped.Messages[i] = &cp
	}
	return shaped
}

func canonicalRequest(model string, req *Request) ([]byte, error) {
	type wireMessage struct {
		Role         string              `json:"role"`
		Name         string              `json:"name,omitempty"`
		Content      string              `json:"content"`
		FunctionCall *types.FunctionCall `json:"function_call,omitempty"`
	}
	payload := struct {
		Model    string        `json:"model"`
		System   string        `json:"system,omitempty"`
		Messages []wireMessage `json:"messages"`
		Tools    []string      `json:"tools,omitempty"`
	}{Model: model, System: req.System}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, wireMessage{
			Role:         m.Role,
			Name:         m.Name,
			Content:      m.Content,
			FunctionCall: m.FunctionCall,
		})
	}
	for _, t := range req.Tools {
		payload.Tools = append(payload.Tools, t.Name())
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request for hashing: %w", err)
	}
	return b, nil
}
