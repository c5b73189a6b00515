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
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/datachat-io/datachat/pkg/types"
)

type openaiProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

var _ Provider = (*openaiProvider)(nil)

func newOpenAIProvider(cfg Config) *openaiProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (p *openaiProvider) Name() string  { return ProviderOpenAI }
func (p *openaiProvider) Model() string { return p.model }

func (p *openaiProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		cm := openai.ChatCompletionMessage{
			Role:    m.Role,
			Name:    m.Name,
			Content: m.Content,
		}
		if m.FunctionCall != nil {
			args, err := json.Marshal(m.FunctionCall.Arguments)
			if err != nil {
				return nil, fmt.Errorf("encoding function call: %w", err)
			}
			cm.FunctionCall = &openai.FunctionCall{
				Name:      m.FunctionCall.Name,
				Arguments: string(args),
			}
		}
		msgs = append(msgs, cm)
	}

	var fns []openai.FunctionDefinition
	for _, t := range req.Tools {
		fns = append(fns, openai.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		Functions:   fns,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: empty response")
	}

	choice := resp.Choices[0].Message
	out := &Response{Content: choice.Content}
	if raw, err := json.Marshal(resp); err == nil {
		out.Raw = raw
	}
	if choice.FunctionCall != nil {
		args := map[string]any{}
		if choice.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(choice.FunctionCall.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decoding function call arguments: %w", err)
			}
		}
		out.FunctionCall = &types.FunctionCall{
			Name:      choice.FunctionCall.Name,
			Arguments: args,
		}
	}
	return out, nil
}
