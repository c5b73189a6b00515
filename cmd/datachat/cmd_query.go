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

	"github.com/spf13/cobra"

	"github.com/datachat-io/datachat/pkg/resultshape"
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a SQL statement against a registered database",
	Long: `Run one SQL statement directly, with the database's safe-mode and
privacy settings applied, and print the result as CSV.`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

var rerunCmd = &cobra.Command{
	Use:   "rerun [query-id]",
	Short: "Re-execute a query saved during a conversation",
	Args:  cobra.ExactArgs(1),
	Run:   runRerun,
}

func init() {
	queryCmd.Flags().String("database", "", "database to query (name or id)")
	rerunCmd.Flags().String("database", "", "database to query (name or id)")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(rerunCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	ref, _ := cmd.Flags().GetString("database")
	db := mustDatabase(ctx, s, ref)
	lake := mustLake(db)
	defer lake.Close()

	res, err := lake.Query(ctx, args[0])
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(resultshape.RenderResult(res))
}

func runRerun(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	q, err := s.GetQuery(ctx, args[0])
	if err != nil {
		fatalf("loading query: %v", err)
	}
	ref, _ := cmd.Flags().GetString("database")
	if ref == "" {
		ref = q.DatabaseID
	}
	db := mustDatabase(ctx, s, ref)
	lake := mustLake(db)
	defer lake.Close()

	res, err := lake.Query(ctx, q.ValidatedSQL)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(resultshape.RenderResult(res))
}
