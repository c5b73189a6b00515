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

// Schema is a JSON Schema fragment describing tool arguments.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Default     any                `json:"default,omitempty"`
}

// NewObjectSchema creates an object schema with the given properties and
// required property names.
func NewObjectSchema(properties map[string]*Schema, required []string) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

// NewStringSchema creates a string schema.
func NewStringSchema(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// NewIntegerSchema creates an integer schema.
func NewIntegerSchema(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}

// NewNumberSchema creates a number schema.
func NewNumberSchema(description string) *Schema {
	return &Schema{Type: "number", Description: description}
}

// NewBooleanSchema creates a boolean schema.
func NewBooleanSchema(description string) *Schema {
	return &Schema{Type: "boolean", Description: description}
}

// NewArraySchema creates an array schema with the given item schema.
func NewArraySchema(items *Schema, description string) *Schema {
	return &Schema{Type: "array", Items: items, Description: description}
}

// WithEnum restricts the schema to the given values.
func (s *Schema) WithEnum(values ...any) *Schema {
	s.Enum = values
	return s
}

// WithDefault records the value used when the argument is omitted.
func (s *Schema) WithDefault(v any) *Schema {
	s.Default = v
	return s
}
