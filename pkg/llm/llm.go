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

// Package llm abstracts the chat model providers behind a single Provider
// interface and adds a persistent prediction cache in front of them.
package llm

import (
	"context"
	"encoding/json"

	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// Request is one chat completion call.
type Request struct {
	// System is the system prompt, already assembled by the caller.
	System string

	// Messages is the conversation history in order.
	Messages []*types.Message

	// Tools lists the callable tools exposed for this turn.
	Tools []tools.Tool
}

// Response is the model's reply to a Request.
type Response struct {
	Content      string              `json:"content"`
	FunctionCall *types.FunctionCall `json:"function_call,omitempty"`

	// Raw preserves the provider's response body for storage and debugging.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Provider is a chat model backend.
type Provider interface {
	// Name identifies the provider ("openai", "anthropic").
	Name() string

	// Model returns the configured model identifier.
	Model() string

	// Chat sends the request and returns the model's next message.
	Chat(ctx context.Context, req *Request) (*Response, error)
}
