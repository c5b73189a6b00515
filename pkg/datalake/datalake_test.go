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
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datachat-io/datachat/pkg/types"
)

func openTestLake(t *testing.T, opts *Options) Datalake {
	t.Helper()
	dl, err := Open(types.EngineSQLite, map[string]string{
		"filename": filepath.Join(t.TempDir(), "test.db"),
	}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { dl.Close() })
	return dl
}

func seedPeople(t *testing.T, dl Datalake, n int) {
	t.Helper()
	ctx := context.Background()
	_, err := dl.Query(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, bio TEXT)`)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		_, err := dl.Query(ctx,
			fmt.Sprintf(`INSERT INTO people (id, name, bio) VALUES (%d, 'person %d', 'bio %d')`, i, i, i))
		require.NoError(t, err)
	}
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(types.Engine("oracle"), nil, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestOpenSQLiteRequiresFilename(t *testing.T) {
	_, err := Open(types.EngineSQLite, nil, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestQueryReturnsAllRowsUnderCap(t *testing.T) {
	dl := openTestLake(t, nil)
	seedPeople(t, dl, 5)

	res, err := dl.Query(context.Background(), `SELECT * FROM people ORDER BY id`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5)
	assert.False(t, res.Truncated)
	assert.True(t, res.TotalKnown)
	assert.EqualValues(t, 5, res.TotalCount)
	assert.Equal(t, "person 1", res.Rows[0]["name"])
}

func TestQueryRowCapCountsRemainder(t *testing.T) {
	dl := openTestLake(t, &Options{MaxRows: 3})
	seedPeople(t, dl, 10)

	res, err := dl.Query(context.Background(), `SELECT * FROM people ORDER BY id`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.True(t, res.Truncated)
	assert.True(t, res.TotalKnown)
	assert.EqualValues(t, 10, res.TotalCount)
}

func TestQueryByteCapCountsRemainder(t *testing.T) {
	dl := openTestLake(t, &Options{MaxPayloadBytes: 64})
	seedPeople(t, dl, 20)

	res, err := dl.Query(context.Background(), `SELECT * FROM people ORDER BY id`)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Less(t, len(res.Rows), 20)
	assert.True(t, res.TotalKnown)
	assert.EqualValues(t, 20, res.TotalCount)
}

func TestQueryStrictModeFails(t *testing.T) {
	dl := openTestLake(t, &Options{MaxRows: 2, Strict: true})
	seedPeople(t, dl, 5)

	_, err := dl.Query(context.Background(), `SELECT * FROM people`)
	var sizeErr *SizeLimitError
	require.ErrorAs(t, err, &sizeErr)
}

func TestQuerySyntaxError(t *testing.T) {
	dl := openTestLake(t, nil)
	_, err := dl.Query(context.Background(), `SELEC nothing`)
	require.Error(t, err)
}

func TestLoadMetadataSQLite(t *testing.T) {
	dl := openTestLake(t, nil)
	seedPeople(t, dl, 1)
	_, err := dl.Query(context.Background(),
		`CREATE VIEW people_names AS SELECT name FROM people`)
	require.NoError(t, err)

	tables, err := dl.LoadMetadata(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "people", tables[0].Name)
	assert.False(t, tables[0].IsView)
	require.Len(t, tables[0].Columns, 3)
	assert.Equal(t, "id", tables[0].Columns[0].Name)

	assert.Equal(t, "people_names", tables[1].Name)
	assert.True(t, tables[1].IsView)
}

func TestCreateView(t *testing.T) {
	dl := openTestLake(t, nil)
	seedPeople(t, dl, 3)

	vc, ok := dl.(ViewCreator)
	require.True(t, ok)
	require.NoError(t, vc.CreateView(context.Background(), "first_two",
		`SELECT * FROM people WHERE id <= 2;`, false))

	res, err := dl.Query(context.Background(), `SELECT * FROM first_two`)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	err = vc.CreateView(context.Background(), "mat", `SELECT 1`, true)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheckSafe(t *testing.T) {
	cases := []struct {
		sql     string
		keyword string
	}{
		{"DROP TABLE users", "DROP"},
		{"delete from users", "DELETE"},
		{"SELECT * FROM t; TRUNCATE t", "TRUNCATE"},
		{"alter table t add c int", "ALTER"},
		{"Insert Into t Values (1)", "INSERT"},
		{"update t set c = 1", "UPDATE"},
		{"SELECT * FROM users", ""},
		{"SELECT updated_at, last_insert_id FROM t", ""},
		{"SELECT * FROM deleted_items", ""},
	}
	for _, c := range cases {
		err := CheckSafe(c.sql)
		if c.keyword == "" {
			assert.NoError(t, err, c.sql)
			continue
		}
		var unsafeErr *UnsafeQueryError
		require.ErrorAs(t, err, &unsafeErr, c.sql)
		assert.Equal(t, c.keyword, unsafeErr.Keyword, c.sql)
	}
}

func TestSafeModeRejectsBeforeExecution(t *testing.T) {
	inner := &stubLake{}
	dl := WithSafeMode(inner)

	_, err := dl.Query(context.Background(), `DROP TABLE people`)
	var unsafeErr *UnsafeQueryError
	require.ErrorAs(t, err, &unsafeErr)
	assert.Zero(t, inner.calls)

	_, err = dl.Query(context.Background(), `SELECT 1`)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestPrivacyModeRedaction(t *testing.T) {
	inner := &stubLake{result: &Result{Rows: []map[string]any{
		{
			"email":   "alice@example.com",
			"name":    "Alice",
			"secret":  "s3cr3t",
			"token":   "tok",
			"comment": "reach me at alice@example.com or 06 12 34 56 78",
			"city":    "Paris",
			"age":     int64(30),
		},
	}, TotalCount: 1, TotalKnown: true}}
	dl := WithPrivacyMode(inner)

	res, err := dl.Query(context.Background(), `SELECT * FROM people`)
	require.NoError(t, err)
	row := res.Rows[0]
	assert.Equal(t, RedactionMarker, row["email"])
	assert.Equal(t, RedactionMarker, row["name"])
	assert.Equal(t, RedactionMarker, row["secret"])
	assert.Equal(t, RedactionMarker, row["token"])
	assert.Equal(t, "reach me at "+RedactionMarker+" or "+RedactionMarker, row["comment"])
	assert.Equal(t, "Paris", row["city"])
	assert.Equal(t, int64(30), row["age"])
}

func TestPrivacyModePassesErrors(t *testing.T) {
	inner := &stubLake{err: errors.New("boom")}
	dl := WithPrivacyMode(inner)
	_, err := dl.Query(context.Background(), `SELECT 1`)
	require.Error(t, err)
}

// stubLake is a hand mock for decorator tests.
type stubLake struct {
	calls  int
	result *Result
	err    error
}

func (s *stubLake) Dialect() string { return "stub" }
func (s *stubLake) Query(ctx context.Context, sql string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &Result{TotalKnown: true}, nil
}
func (s *stubLake) LoadMetadata(ctx context.Context) ([]types.TableMetadata, error) {
	return nil, nil
}
func (s *stubLake) TestConnection(ctx context.Context) error { return nil }
func (s *stubLake) Close() error                             { return nil }
