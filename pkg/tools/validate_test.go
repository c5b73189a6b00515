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

package tools

import (
	"strings"
	"testing"
)

func queryTool() Tool {
	return &fakeTool{
		name: "SQL_QUERY",
		schema: NewObjectSchema(map[string]*Schema{
			"query": NewStringSchema("the SQL statement to run"),
			"limit": NewIntegerSchema("maximum rows").WithDefault(100),
		}, []string{"query"}),
	}
}

func TestValidateArgsValid(t *testing.T) {
	if err := ValidateArgs(queryTool(), map[string]any{"query": "SELECT 1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateArgsMissingRequired(t *testing.T) {
	err := ValidateArgs(queryTool(), map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "query") {
		t.Fatalf("error does not name the missing property: %v", err)
	}
}

func TestValidateArgsWrongType(t *testing.T) {
	err := ValidateArgs(queryTool(), map[string]any{"query": "SELECT 1", "limit": "ten"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateArgsNilArgs(t *testing.T) {
	if err := ValidateArgs(queryTool(), nil); err == nil {
		t.Fatal("expected error for nil args with required property")
	}
}

func TestValidateArgsNilSchema(t *testing.T) {
	if err := ValidateArgs(&fakeTool{name: "BARE"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateArgsEnum(t *testing.T) {
	tool := &fakeTool{
		name: "PLOT_WIDGET",
		schema: NewObjectSchema(map[string]*Schema{
			"kind": NewStringSchema("chart kind").WithEnum("bar", "line", "pie"),
		}, []string{"kind"}),
	}
	if err := ValidateArgs(tool, map[string]any{"kind": "bar"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateArgs(tool, map[string]any{"kind": "donut"}); err == nil {
		t.Fatal("expected enum violation")
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]any{"s": "x", "f": float64(7), "i": 3, "b": true}
	if String(args, "s") != "x" || String(args, "missing") != "" {
		t.Fatal("String helper")
	}
	if Int(args, "f") != 7 || Int(args, "i") != 3 || Int(args, "missing") != 0 {
		t.Fatal("Int helper")
	}
	if !Bool(args, "b") || Bool(args, "missing") {
		t.Fatal("Bool helper")
	}
}
