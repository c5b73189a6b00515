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

	"github.com/datachat-io/datachat/pkg/embedding"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect what the agent remembers about a database",
}

var memorySearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find past queries closest in meaning to a text",
	Args:  cobra.ExactArgs(1),
	Run:   runMemorySearch,
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a database's saved memory notes",
	Run:   runMemoryShow,
}

func init() {
	memorySearchCmd.Flags().String("database", "", "database to search (name or id)")
	memorySearchCmd.Flags().Int("n", 3, "number of results")
	memoryShowCmd.Flags().String("database", "", "database to show (name or id)")
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryShowCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemorySearch(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	ref, _ := cmd.Flags().GetString("database")
	db := mustDatabase(ctx, s, ref)
	n, _ := cmd.Flags().GetInt("n")

	embedder, err := embedding.New(embedding.Config{
		APIKey: config.Embeddings.APIKey,
		Model:  config.Embeddings.Model,
	})
	if err != nil {
		fatalf("configuring embeddings: %v", err)
	}
	needle, err := embedder.Embed(ctx, args[0])
	if err != nil {
		fatalf("embedding search text: %v", err)
	}
	queries, err := s.ListEmbeddedQueries(ctx, db.ID)
	if err != nil {
		fatalf("listing queries: %v", err)
	}

	closest := embedding.SearchClosest(needle, queries, n)
	if len(closest) == 0 {
		fmt.Println("No embedded queries yet. Run 'datachat embeddings backfill'.")
		return
	}
	for _, q := range closest {
		name := q.Name
		if name == "" {
			name = q.ValidatedSQL
		}
		fmt.Printf("%s  %s\n    %s\n", q.ID, name, q.ValidatedSQL)
	}
}

func runMemoryShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	ref, _ := cmd.Flags().GetString("database")
	db := mustDatabase(ctx, s, ref)
	if db.Memory == "" {
		fmt.Println("No memory saved yet.")
		return
	}
	fmt.Println(db.Memory)
}
