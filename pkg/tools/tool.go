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

// Package tools defines the tool abstraction the conversation loop exposes
// to the model, plus a registry that supports attaching and detaching tools
// while a conversation is running.
package tools

import (
	"context"
)

// Tool is a capability the model can invoke by name during a conversation.
type Tool interface {
	// Name returns the unique tool identifier ("SQL_QUERY", ...).
	Name() string

	// Description explains to the model when to use the tool.
	Description() string

	// InputSchema describes the accepted arguments.
	InputSchema() *Schema

	// Execute runs the tool. A returned error is surfaced to the model as
	// tool output so it can retry; it does not abort the conversation.
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// Result is the outcome of a tool execution.
type Result struct {
	// Content is the textual output fed back to the model.
	Content string

	// Image is an optional rendered artifact (a chart PNG) attached to
	// the resulting message.
	Image []byte

	// QueryID links the invocation to a stored query record.
	QueryID string

	// StopLoop asks the conversation loop to stop after recording this
	// result instead of asking the model for another step.
	StopLoop bool
}

// String extracts a string argument, tolerating absence.
func String(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// Int extracts an integer argument. JSON decoding produces float64, so
// both forms are accepted.
func Int(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Bool extracts a boolean argument, tolerating absence.
func Bool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}
