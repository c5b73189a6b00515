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
	"database/sql"
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	_ "github.com/datachat-io/datachat/internal/sqlitedriver"
	"github.com/datachat-io/datachat/pkg/types"
)

// Open creates a datalake for the given engine. The engine set is closed;
// unknown engines fail with *ConfigError.
func Open(engine types.Engine, details map[string]string, opts *Options) (Datalake, error) {
	o := opts.withDefaults()
	switch engine {
	case types.EnginePostgres:
		return openDriver("postgres", postgresDSN(details), string(engine), true, o)
	case types.EngineMySQL:
		return openDriver("mysql", mysqlDSN(details), string(engine), true, o)
	case types.EngineSQLite:
		filename := details["filename"]
		if filename == "" {
			return nil, &ConfigError{Reason: "sqlite requires a filename"}
		}
		return openDriver("sqlite3", filename, string(engine), true, o)
	case types.EngineSnowflake:
		// The snowflake driver is registered by the embedding binary.
		// Snowflake transfers result sets eagerly, so truncated queries
		// are re-counted with a COUNT(*) wrap instead of cursor draining.
		return openDriver("snowflake", snowflakeDSN(details), string(engine), false, o)
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown engine %q", engine)}
	}
}

// FromDatabase opens a datalake from a stored database record and applies
// its safe-mode and privacy-mode policies.
func FromDatabase(db *types.Database, opts *Options) (Datalake, error) {
	dl, err := Open(db.Engine, db.Details, opts)
	if err != nil {
		return nil, err
	}
	if db.SafeMode {
		dl = WithSafeMode(dl)
	}
	if db.PrivacyMode {
		dl = WithPrivacyMode(dl)
	}
	return dl, nil
}

func openDriver(driver, dsn, dialect string, countRemainder bool, o Options) (Datalake, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("opening %s: %v", dialect, err)}
	}
	return &sqlDatalake{db: db, dialect: dialect, opts: o, countRemainder: countRemainder}, nil
}

func postgresDSN(details map[string]string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   hostPort(details, "5432"),
		Path:   "/" + details["database"],
	}
	if user := details["username"]; user != "" {
		u.User = url.UserPassword(user, details["password"])
	}
	q := url.Values{}
	sslmode := details["sslmode"]
	if sslmode == "" {
		sslmode = "prefer"
	}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func mysqlDSN(details map[string]string) string {
	cfg := mysql.NewConfig()
	cfg.User = details["username"]
	cfg.Passwd = details["password"]
	cfg.Net = "tcp"
	cfg.Addr = hostPort(details, "3306")
	cfg.DBName = details["database"]
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func snowflakeDSN(details map[string]string) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s",
		details["username"], details["password"], details["account"], details["database"])
	if schema := details["schema"]; schema != "" {
		dsn += "/" + schema
	}
	if warehouse := details["warehouse"]; warehouse != "" {
		dsn += "?warehouse=" + url.QueryEscape(warehouse)
	}
	return dsn
}

func hostPort(details map[string]string, defaultPort string) string {
	host := details["host"]
	if host == "" {
		host = "localhost"
	}
	port := details["port"]
	if port == "" {
		port = defaultPort
	}
	return host + ":" + port
}
