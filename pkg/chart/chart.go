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

// Package chart builds renderable widget specifications from query result
// rows. Data reshaping is limited to a closed set of transforms; arbitrary
// preprocessing code is deliberately not supported.
package chart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind is a supported chart type.
type Kind string

const (
	KindBar      Kind = "bar"
	KindLine     Kind = "line"
	KindArea     Kind = "area"
	KindPie      Kind = "pie"
	KindDoughnut Kind = "doughnut"
)

// Valid reports whether the kind is part of the closed set.
func (k Kind) Valid() bool {
	switch k {
	case KindBar, KindLine, KindArea, KindPie, KindDoughnut:
		return true
	}
	return false
}

// Transform reshapes result rows into chart points.
type Transform string

const (
	// TransformIdentity expects rows that already carry "label" and
	// "value" columns.
	TransformIdentity Transform = "identity"

	// TransformLabelValue picks one column as the label and one as the
	// value.
	TransformLabelValue Transform = "label_value"

	// TransformMelt turns every numeric column except the label column
	// into its own series.
	TransformMelt Transform = "melt"
)

// Point is one plotted value.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a named sequence of points.
type Series struct {
	Name   string  `json:"name,omitempty"`
	Points []Point `json:"points"`
}

// Spec is a complete widget description the UI can render.
type Spec struct {
	Type   Kind     `json:"type"`
	Title  string   `json:"title,omitempty"`
	Series []Series `json:"series"`
}

// JSON renders the spec as its wire form.
func (s *Spec) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// Renderer turns a spec into a displayable artifact.
type Renderer interface {
	Render(spec *Spec) ([]byte, error)
}

// BuildSpec reshapes rows into a chart spec.
func BuildSpec(kind Kind, title string, rows []map[string]any, labelKey, valueKey string, transform Transform) (*Spec, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown chart type %q", kind)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to plot")
	}
	if transform == "" {
		transform = TransformLabelValue
	}

	spec := &Spec{Type: kind, Title: title}
	switch transform {
	case TransformIdentity:
		series, err := buildLabelValue(rows, "label", "value")
		if err != nil {
			return nil, err
		}
		spec.Series = []Series{series}
	case TransformLabelValue:
		if labelKey == "" || valueKey == "" {
			return nil, fmt.Errorf("label_value transform needs label and value columns")
		}
		series, err := buildLabelValue(rows, labelKey, valueKey)
		if err != nil {
			return nil, err
		}
		spec.Series = []Series{series}
	case TransformMelt:
		if labelKey == "" {
			return nil, fmt.Errorf("melt transform needs a label column")
		}
		series, err := buildMelt(rows, labelKey)
		if err != nil {
			return nil, err
		}
		spec.Series = series
	default:
		return nil, fmt.Errorf("unknown transform %q", transform)
	}
	return spec, nil
}

func buildLabelValue(rows []map[string]any, labelKey, valueKey string) (Series, error) {
	var s Series
	for i, row := range rows {
		label, ok := row[labelKey]
		if !ok {
			return Series{}, fmt.Errorf("row %d has no column %q", i, labelKey)
		}
		value, ok := row[valueKey]
		if !ok {
			return Series{}, fmt.Errorf("row %d has no column %q", i, valueKey)
		}
		f, err := toFloat(value)
		if err != nil {
			return Series{}, fmt.Errorf("row %d column %q: %w", i, valueKey, err)
		}
		s.Points = append(s.Points, Point{Label: fmt.Sprint(label), Value: f})
	}
	return s, nil
}

func buildMelt(rows []map[string]any, labelKey string) ([]Series, error) {
	byName := map[string]*Series{}
	var names []string
	for i, row := range rows {
		label, ok := row[labelKey]
		if !ok {
			return nil, fmt.Errorf("row %d has no column %q", i, labelKey)
		}
		cols := make([]string, 0, len(row))
		for c := range row {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			if c == labelKey {
				continue
			}
			f, err := toFloat(row[c])
			if err != nil {
				continue
			}
			s, ok := byName[c]
			if !ok {
				s = &Series{Name: c}
				byName[c] = s
				names = append(names, c)
			}
			s.Points = append(s.Points, Point{Label: fmt.Sprint(label), Value: f})
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no numeric columns to melt")
	}
	out := make([]Series, 0, len(names))
	for _, n := range names {
		out = append(out, *byName[n])
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}
