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

// Package embedding computes text embeddings and searches stored queries
// by vector distance.
package embedding

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/datachat-io/datachat/pkg/types"
)

// Dimensions of the embedding vectors produced by the default model.
const Dimensions = 1536

// Provider computes embedding vectors for text.
type Provider interface {
	// Embed returns the embedding of one text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

type openaiProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

var _ Provider = (*openaiProvider)(nil)

// Config tunes the embedding provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New creates an OpenAI-backed embedding provider.
func New(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: openai API key is not set")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.AdaEmbeddingV2
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("creating embedding: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// Distance returns the Euclidean distance between two vectors. Vectors of
// different lengths are infinitely far apart.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// SearchClosest returns up to n stored queries ordered by ascending
// distance to needle. Queries without an embedding are skipped; distance
// ties keep the input order.
func SearchClosest(needle []float32, queries []*types.Query, n int) []*types.Query {
	type scored struct {
		q *types.Query
		d float64
	}
	var candidates []scored
	for _, q := range queries {
		d := Distance(needle, q.Embedding)
		if math.IsInf(d, 1) {
			continue
		}
		candidates = append(candidates, scored{q: q, d: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].d < candidates[j].d
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]*types.Query, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, c.q)
	}
	return out
}
