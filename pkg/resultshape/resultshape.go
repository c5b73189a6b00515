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

// Package resultshape turns query results into the compact textual form
// shown to the model and rewrites verbose JSON blocks into CSV.
package resultshape

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/datachat-io/datachat/pkg/datalake"
)

// RowsToCSV renders rows as a CSV document with a header line. Columns are
// emitted in sorted order so output is stable across runs.
func RowsToCSV(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write(cols)
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			record[i] = formatValue(row[c])
		}
		w.Write(record)
	}
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// Render integral floats without the trailing ".0" JSON decoding
		// tends to produce.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// RenderResult formats a query result for the model. The header carries
// the fetched and total row counts; an unknown total renders as "?".
func RenderResult(res *datalake.Result) string {
	total := "?"
	if res.TotalKnown {
		total = fmt.Sprintf("%d", res.TotalCount)
	}
	return fmt.Sprintf("Result %d/%s:\n```csv\n%s\n```", len(res.Rows), total, RowsToCSV(res.Rows))
}

// RenderError formats an execution failure so the model can correct the
// statement on the next attempt.
func RenderError(err error) string {
	return fmt.Sprintf("The query failed with the following error, fix the query and try again:\n```\n%s\n```", err)
}
