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
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/datachat-io/datachat/pkg/types"
)

// sqlDatalake is the database/sql backed implementation shared by all
// engines. Engine-specific behavior (metadata queries, remainder counting)
// is selected by dialect.
type sqlDatalake struct {
	db      *sql.DB
	dialect string
	opts    Options

	// countRemainder engines keep the cursor open and drain it to count
	// rows past the cap. Engines that transfer the full result set up
	// front (snowflake) wrap the query in COUNT(*) instead.
	countRemainder bool
}

var _ Datalake = (*sqlDatalake)(nil)
var _ ViewCreator = (*sqlDatalake)(nil)

func (d *sqlDatalake) Dialect() string { return d.dialect }

func (d *sqlDatalake) Close() error { return d.db.Close() }

func (d *sqlDatalake) TestConnection(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *sqlDatalake) Query(ctx context.Context, sqlText string) (*Result, error) {
	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	res := &Result{TotalKnown: true}
	var payload int64
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		payload += rowSize(row)
		if res.Truncated || payload > d.opts.MaxPayloadBytes || len(res.Rows) >= d.opts.MaxRows {
			if d.opts.Strict {
				return nil, &SizeLimitError{Limit: d.opts.MaxPayloadBytes}
			}
			res.Truncated = true
			res.TotalCount++
			if !d.countRemainder {
				break
			}
			continue
		}
		res.Rows = append(res.Rows, row)
		res.TotalCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if res.Truncated {
		if !d.countRemainder {
			total, err := d.countTotal(ctx, sqlText)
			if err != nil {
				res.TotalKnown = false
			} else {
				res.TotalCount = total
			}
		}
	}
	return res, nil
}

// countTotal wraps the original statement in a COUNT(*) subquery. Used by
// engines where draining the remainder would re-transfer the result set.
func (d *sqlDatalake) countTotal(ctx context.Context, sqlText string) (int64, error) {
	inner := strings.TrimRight(strings.TrimSpace(sqlText), ";")
	var total int64
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS t", inner)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return total, nil
}

func (d *sqlDatalake) CreateView(ctx context.Context, name, sqlText string, materialized bool) error {
	kind := "VIEW"
	if materialized {
		if d.dialect != string(types.EnginePostgres) && d.dialect != string(types.EngineSnowflake) {
			return &ConfigError{Reason: fmt.Sprintf("%s does not support materialized views", d.dialect)}
		}
		kind = "MATERIALIZED VIEW"
	}
	stmt := fmt.Sprintf("CREATE %s %s AS %s", kind, quoteIdent(d.dialect, name),
		strings.TrimRight(strings.TrimSpace(sqlText), ";"))
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating view %s: %w", name, err)
	}
	return nil
}

func (d *sqlDatalake) LoadMetadata(ctx context.Context) ([]types.TableMetadata, error) {
	switch d.dialect {
	case string(types.EngineSQLite):
		return d.loadSQLiteMetadata(ctx)
	default:
		return d.loadInformationSchema(ctx)
	}
}

// informationSchemaQuery lists every user column with its table context.
// Rows arrive ordered so columns of one table are contiguous.
const informationSchemaQuery = `
SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.is_nullable,
       CASE WHEN t.table_type LIKE '%%VIEW%%' THEN 1 ELSE 0 END
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE %s
ORDER BY c.table_schema, c.table_name, c.ordinal_position`

func (d *sqlDatalake) loadInformationSchema(ctx context.Context) ([]types.TableMetadata, error) {
	filter := "c.table_schema NOT IN ('pg_catalog', 'information_schema')"
	if d.dialect == string(types.EngineMySQL) {
		filter = "c.table_schema = DATABASE()"
	}
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(informationSchemaQuery, filter))
	if err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	defer rows.Close()

	var (
		tables []types.TableMetadata
		cur    *types.TableMetadata
	)
	for rows.Next() {
		var (
			schema, table, column, dataType, nullable string
			isView                                    int
		)
		if err := rows.Scan(&schema, &table, &column, &dataType, &nullable, &isView); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		if cur == nil || cur.Schema != schema || cur.Name != table {
			tables = append(tables, types.TableMetadata{
				Schema: schema,
				Name:   table,
				IsView: isView == 1,
			})
			cur = &tables[len(tables)-1]
		}
		cur.Columns = append(cur.Columns, types.ColumnMetadata{
			Name:     column,
			Type:     dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata: %w", err)
	}
	return tables, nil
}

func (d *sqlDatalake) loadSQLiteMetadata(ctx context.Context) ([]types.TableMetadata, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, type FROM sqlite_master
		 WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []types.TableMetadata
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scanning table: %w", err)
		}
		tables = append(tables, types.TableMetadata{
			Schema: "main",
			Name:   name,
			IsView: kind == "view",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	for i := range tables {
		cols, err := d.sqliteColumns(ctx, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

func (d *sqlDatalake) sqliteColumns(ctx context.Context, table string) ([]types.ColumnMetadata, error) {
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(string(types.EngineSQLite), table)))
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	defer rows.Close()

	var cols []types.ColumnMetadata
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			deflt            any
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &deflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		cols = append(cols, types.ColumnMetadata{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0,
		})
	}
	return cols, rows.Err()
}

// normalizeValue maps driver values onto JSON-friendly Go types.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

// rowSize estimates the serialized footprint of one row. Values that do
// not marshal cleanly are counted by their string form.
func rowSize(row map[string]any) int64 {
	var n int64
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n += int64(len(k))
		if b, err := json.Marshal(row[k]); err == nil {
			n += int64(len(b))
		} else {
			n += int64(len(fmt.Sprint(row[k])))
		}
	}
	return n
}

func quoteIdent(dialect, name string) string {
	switch dialect {
	case string(types.EngineMySQL):
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}
