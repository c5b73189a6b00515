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

// Package types contains the shared data model used across the datachat
// packages. It exists so that the chat loop, the LLM providers, the tool set
// and the stores can all agree on the record shapes without import cycles.
package types

import (
	"time"
)

// Engine identifies a supported backing database kind. The set is closed;
// the datalake factory rejects anything else at construction time.
type Engine string

const (
	EnginePostgres  Engine = "postgres"
	EngineMySQL     Engine = "mysql"
	EngineSQLite    Engine = "sqlite"
	EngineSnowflake Engine = "snowflake"
)

// Valid reports whether the engine is part of the closed set.
func (e Engine) Valid() bool {
	switch e {
	case EnginePostgres, EngineMySQL, EngineSQLite, EngineSnowflake:
		return true
	}
	return false
}

// Database describes a connected data source and the policies applied to it.
type Database struct {
	ID          string
	Name        string
	Description string
	Engine      Engine

	// Details holds engine-specific connection parameters (host, user, ...).
	Details map[string]string

	// SafeMode rejects destructive SQL keywords before execution.
	SafeMode bool

	// PrivacyMode redacts sensitive fields and patterns from query results.
	PrivacyMode bool

	// Memory is the agent's long-term notepad for this database,
	// newline-joined by the SAVE_TO_MEMORY tool.
	Memory string

	// TablesMetadata caches the schema description loaded from the source.
	TablesMetadata []TableMetadata

	// DBTCatalog and DBTManifest hold the optional dbt artifacts as raw JSON.
	DBTCatalog  []byte
	DBTManifest []byte

	OwnerID   string
	CreatedAt time.Time
}

// TableMetadata describes one table of a connected database.
type TableMetadata struct {
	Schema  string           `json:"schema"`
	Name    string           `json:"table"`
	IsView  bool             `json:"is_view"`
	Columns []ColumnMetadata `json:"columns"`
}

// ColumnMetadata describes one column of a table.
type ColumnMetadata struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Comment  string `json:"comment,omitempty"`
}

// Conversation is an ordered, append-only log of messages against one
// database. Only Regenerate may remove a suffix of the log.
type Conversation struct {
	ID         string
	Name       string
	OwnerID    string
	DatabaseID string
	ProjectID  string
	CreatedAt  time.Time
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleFunction  = "function"
)

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is a single entry in a conversation log.
type Message struct {
	ID             string
	ConversationID string

	Role string

	// Name distinguishes pre-history examples (example_user, ...) and names
	// the tool on function-result messages.
	Name string

	Content      string
	FunctionCall *FunctionCall

	// QueryID links the message to the Query record it produced, if any.
	QueryID string

	// Image holds a rendered chart attachment.
	Image []byte

	// Done marks a presentable final answer.
	Done bool

	// Display is false for plumbing messages (tool invocations and their
	// results) that the UI should not render as conversation.
	Display bool

	CreatedAt time.Time
}

// Query is a persisted SQL statement, optionally embedded for memory search.
type Query struct {
	ID           string
	Name         string
	DatabaseID   string
	ValidatedSQL string
	Embedding    []float32
	CreatedAt    time.Time
}

// Prediction is a cached model response, content-addressed by the hash of
// the exact message list that produced it. Identical inputs always resolve
// to the same output; this is the caching contract, not a hint.
type Prediction struct {
	ID         string
	ParamsHash string
	ModelName  string
	Prompt     string
	Response   []byte
	Output     string
	Value      []byte
	CreatedAt  time.Time
}

// Project groups conversations and notes.
type Project struct {
	ID         string
	Name       string
	DatabaseID string
	CreatedAt  time.Time
}

// Note is a project-scoped document the agent can manage.
type Note struct {
	ID        string
	ProjectID string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
