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
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datachat-io/datachat/pkg/types"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage registered databases",
}

var dbAddCmd = &cobra.Command{
	Use:   "add [name] [engine]",
	Short: "Register a database connection",
	Long: `Register a database connection and load its table metadata.

Connection details are passed as repeated --detail key=value flags. The
keys depend on the engine:

  postgres   host, port, user, password, dbname, sslmode
  mysql      host, port, user, password, dbname
  sqlite     filename
  snowflake  account, user, password, dbname, schema, warehouse`,
	Args: cobra.ExactArgs(2),
	Run:  runDBAdd,
}

var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered databases",
	Run:   runDBList,
}

var dbSyncCmd = &cobra.Command{
	Use:   "sync [name]",
	Short: "Reload a database's table metadata",
	Args:  cobra.ExactArgs(1),
	Run:   runDBSync,
}

var dbRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a registered database",
	Args:  cobra.ExactArgs(1),
	Run:   runDBRemove,
}

var dbDBTCmd = &cobra.Command{
	Use:   "dbt [name]",
	Short: "Attach dbt artifacts to a database",
	Long: `Attach a dbt manifest and catalog to a registered database. The
model definitions become available to the agent through the DBT_* tools.`,
	Args: cobra.ExactArgs(1),
	Run:  runDBDBT,
}

func init() {
	dbAddCmd.Flags().StringArray("detail", nil, "connection detail as key=value (repeatable)")
	dbAddCmd.Flags().String("description", "", "free-form description shown to the model")
	dbAddCmd.Flags().Bool("safe-mode", true, "reject destructive SQL statements")
	dbAddCmd.Flags().Bool("privacy-mode", false, "redact sensitive values in query results")

	dbDBTCmd.Flags().String("manifest", "", "path to the dbt manifest.json")
	dbDBTCmd.Flags().String("catalog", "", "path to the dbt catalog.json")

	dbCmd.AddCommand(dbAddCmd)
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbSyncCmd)
	dbCmd.AddCommand(dbRemoveCmd)
	dbCmd.AddCommand(dbDBTCmd)
	rootCmd.AddCommand(dbCmd)
}

func runDBAdd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	name, engine := args[0], types.Engine(args[1])
	if !engine.Valid() {
		fatalf("unknown engine %q (postgres, mysql, sqlite, snowflake)", args[1])
	}

	pairs, _ := cmd.Flags().GetStringArray("detail")
	details := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			fatalf("invalid --detail %q, expected key=value", pair)
		}
		details[key] = value
	}

	description, _ := cmd.Flags().GetString("description")
	safeMode, _ := cmd.Flags().GetBool("safe-mode")
	privacyMode, _ := cmd.Flags().GetBool("privacy-mode")

	db := &types.Database{
		Name:        name,
		Description: description,
		Engine:      engine,
		Details:     details,
		SafeMode:    safeMode,
		PrivacyMode: privacyMode,
	}

	lake := mustLake(db)
	defer lake.Close()
	if err := lake.TestConnection(ctx); err != nil {
		fatalf("connection test failed: %v", err)
	}
	tables, err := lake.LoadMetadata(ctx)
	if err != nil {
		fatalf("loading metadata: %v", err)
	}
	db.TablesMetadata = tables

	s := mustStore(ctx)
	defer s.Close()
	if err := s.CreateDatabase(ctx, db); err != nil {
		fatalf("registering database: %v", err)
	}
	fmt.Printf("Registered %s (%s), %d tables.\n", db.Name, db.Engine, len(tables))
}

func runDBList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	dbs, err := s.ListDatabases(ctx)
	if err != nil {
		fatalf("listing databases: %v", err)
	}
	if len(dbs) == 0 {
		fmt.Println("No databases registered. Run 'datachat db add'.")
		return
	}
	for _, db := range dbs {
		flags := make([]string, 0, 2)
		if db.SafeMode {
			flags = append(flags, "safe")
		}
		if db.PrivacyMode {
			flags = append(flags, "privacy")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Printf("%s  %s (%s, %d tables)%s\n",
			db.ID, db.Name, db.Engine, len(db.TablesMetadata), suffix)
	}
}

func runDBSync(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	db := mustDatabase(ctx, s, args[0])
	lake := mustLake(db)
	defer lake.Close()

	tables, err := lake.LoadMetadata(ctx)
	if err != nil {
		fatalf("loading metadata: %v", err)
	}
	if err := s.SetDatabaseMetadata(ctx, db.ID, tables); err != nil {
		fatalf("saving metadata: %v", err)
	}
	fmt.Printf("Synced %s, %d tables.\n", db.Name, len(tables))
}

func runDBRemove(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	db := mustDatabase(ctx, s, args[0])
	if err := s.DeleteDatabase(ctx, db.ID); err != nil {
		fatalf("removing database: %v", err)
	}
	fmt.Printf("Removed %s.\n", db.Name)
}

func runDBDBT(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	db := mustDatabase(ctx, s, args[0])
	manifestPath, _ := cmd.Flags().GetString("manifest")
	catalogPath, _ := cmd.Flags().GetString("catalog")
	if manifestPath == "" {
		fatalf("--manifest is required")
	}

	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		fatalf("reading manifest: %v", err)
	}
	var catalog []byte
	if catalogPath != "" {
		if catalog, err = os.ReadFile(catalogPath); err != nil {
			fatalf("reading catalog: %v", err)
		}
	}
	if err := s.SetDBTArtifacts(ctx, db.ID, catalog, manifest); err != nil {
		fatalf("saving dbt artifacts: %v", err)
	}
	fmt.Printf("Attached dbt artifacts to %s.\n", db.Name)
}
