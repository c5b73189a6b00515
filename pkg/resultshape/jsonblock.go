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

package resultshape

import (
	"encoding/json"
	"regexp"
)

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*\n(.*?)```")

// ReplaceJSONBlocks rewrites fenced json blocks that contain an array of
// uniform-keyed flat objects into csv blocks. Blocks that do not parse,
// whose content is not an object array, or whose objects disagree on keys
// are left untouched. Applying the function twice yields the same output
// as applying it once.
func ReplaceJSONBlocks(content string) string {
	return jsonBlockRe.ReplaceAllStringFunc(content, func(block string) string {
		m := jsonBlockRe.FindStringSubmatch(block)
		var rows []map[string]any
		if err := json.Unmarshal([]byte(m[1]), &rows); err != nil || len(rows) == 0 {
			return block
		}
		if !uniformKeys(rows) {
			return block
		}
		return "```csv\n" + RowsToCSV(rows) + "\n```"
	})
}

// uniformKeys reports whether every row carries exactly the first row's
// key set. A csv rendering of a non-uniform array would drop columns.
func uniformKeys(rows []map[string]any) bool {
	for _, row := range rows[1:] {
		if len(row) != len(rows[0]) {
			return false
		}
		for key := range row {
			if _, ok := rows[0][key]; !ok {
				return false
			}
		}
	}
	return true
}
