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

// Package datalake provides a uniform query and metadata interface over
// heterogeneous backing databases. Engine variants are selected by a closed
// factory; safe mode and privacy mode are layered on top of any variant as
// decorators.
package datalake

import (
	"context"
	"fmt"

	"github.com/datachat-io/datachat/pkg/types"
)

// Default resource limits for a single query execution.
const (
	// DefaultMaxPayloadBytes caps the total serialized size of fetched rows.
	DefaultMaxPayloadBytes = 2 << 20 // 2 MiB

	// DefaultMaxRows caps the number of materialized rows per query.
	DefaultMaxRows = 1000
)

// Datalake is the capability interface over a configured backing database.
type Datalake interface {
	// Dialect returns the SQL dialect name ("postgres", "mysql", ...).
	Dialect() string

	// Query executes sql and returns a size-capped prefix of the result set
	// together with the total row count when it can be determined.
	Query(ctx context.Context, sql string) (*Result, error)

	// LoadMetadata describes the tables and columns of the source.
	LoadMetadata(ctx context.Context) ([]types.TableMetadata, error)

	// TestConnection verifies the source is reachable.
	TestConnection(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

// ViewCreator is implemented by engines that can persist a query as a view.
type ViewCreator interface {
	// CreateView materializes sql under name. When materialized is true a
	// materialized view is created on engines that support it.
	CreateView(ctx context.Context, name, sql string, materialized bool) error
}

// Result is the outcome of a query execution.
type Result struct {
	// Rows is the materialized prefix of the result set.
	Rows []map[string]any

	// TotalCount is the total number of rows the query produced, valid only
	// when TotalKnown is true.
	TotalCount int64

	// TotalKnown is false when the engine could not report the total count
	// and the fallback count query failed.
	TotalKnown bool

	// Truncated is true when the byte ceiling or row cap cut the fetch short.
	Truncated bool
}

// Options tune a datalake instance.
type Options struct {
	// MaxPayloadBytes is the fetch byte ceiling (default 2 MiB).
	MaxPayloadBytes int64

	// MaxRows is the row materialization cap (default 1000).
	MaxRows int

	// Strict makes Query fail with *SizeLimitError instead of silently
	// returning a truncated prefix. This is a per-adapter policy choice;
	// callers must not assume silent truncation everywhere.
	Strict bool
}

func (o *Options) withDefaults() Options {
	out := Options{MaxPayloadBytes: DefaultMaxPayloadBytes, MaxRows: DefaultMaxRows}
	if o == nil {
		return out
	}
	if o.MaxPayloadBytes > 0 {
		out.MaxPayloadBytes = o.MaxPayloadBytes
	}
	if o.MaxRows > 0 {
		out.MaxRows = o.MaxRows
	}
	out.Strict = o.Strict
	return out
}

// UnsafeQueryError reports a safe-mode rejection.
type UnsafeQueryError struct {
	Keyword string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("query contains forbidden keyword: %s", e.Keyword)
}

// SizeLimitError reports that a strict-mode fetch could not satisfy the
// byte ceiling.
type SizeLimitError struct {
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("query result exceeds the %d byte limit", e.Limit)
}

// ConfigError reports an invalid datalake configuration.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "datalake configuration: " + e.Reason
}
