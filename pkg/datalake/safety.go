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

package datalake

import (
	"context"
	"regexp"
	"strings"
)

// destructiveKeywordRe matches statements that mutate data or schema.
// Word boundaries keep column names like "updated_at" out of scope.
var destructiveKeywordRe = regexp.MustCompile(`(?i)\b(DROP|DELETE|TRUNCATE|ALTER|INSERT|UPDATE)\b`)

// CheckSafe returns *UnsafeQueryError when sql contains a destructive
// keyword as a whole word, in any casing.
func CheckSafe(sql string) error {
	if m := destructiveKeywordRe.FindString(sql); m != "" {
		return &UnsafeQueryError{Keyword: strings.ToUpper(m)}
	}
	return nil
}

type safeDatalake struct {
	Datalake
}

// WithSafeMode rejects destructive statements before they reach the engine.
func WithSafeMode(dl Datalake) Datalake {
	return &safeDatalake{Datalake: dl}
}

func (d *safeDatalake) Query(ctx context.Context, sql string) (*Result, error) {
	if err := CheckSafe(sql); err != nil {
		return nil, err
	}
	return d.Datalake.Query(ctx, sql)
}
