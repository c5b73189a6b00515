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

// RedactionMarker replaces values judged personally identifying.
const RedactionMarker = "[REDACTED]"

// sensitiveColumns are redacted wholesale, regardless of value shape.
var sensitiveColumns = map[string]struct{}{
	"email":      {},
	"e_mail":     {},
	"mail":       {},
	"phone":      {},
	"telephone":  {},
	"mobile":     {},
	"firstname":  {},
	"first_name": {},
	"lastname":   {},
	"last_name":  {},
	"fullname":   {},
	"full_name":  {},
	"name":       {},
	"surname":    {},
	"address":    {},
	"ssn":        {},
	"iban":       {},
	"password":   {},
	"secret":     {},
	"token":      {},
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+33|0)[1-9](?:[ .-]?\d{2}){4}`)
)

type privacyDatalake struct {
	Datalake
}

// WithPrivacyMode redacts personal data from query results before they
// leave the adapter.
func WithPrivacyMode(dl Datalake) Datalake {
	return &privacyDatalake{Datalake: dl}
}

func (d *privacyDatalake) Query(ctx context.Context, sql string) (*Result, error) {
	res, err := d.Datalake.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	for _, row := range res.Rows {
		redactRow(row)
	}
	return res, nil
}

func redactRow(row map[string]any) {
	for k, v := range row {
		if _, ok := sensitiveColumns[strings.ToLower(k)]; ok {
			row[k] = RedactionMarker
			continue
		}
		if s, ok := v.(string); ok {
			row[k] = redactString(s)
		}
	}
}

func redactString(s string) string {
	s = emailRe.ReplaceAllString(s, RedactionMarker)
	s = phoneRe.ReplaceAllString(s, RedactionMarker)
	return s
}
