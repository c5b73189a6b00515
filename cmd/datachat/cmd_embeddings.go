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

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Manage query embeddings for memory search",
}

var embeddingsBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed saved queries that have no embedding yet",
	Long: `Embed the queries saved during past conversations so MEMORY_SEARCH
can find them. Queries are embedded by name, falling back to their SQL.`,
	Run: runEmbeddingsBackfill,
}

func init() {
	embeddingsBackfillCmd.Flags().String("database", "", "restrict to one database (name or id)")
	embeddingsCmd.AddCommand(embeddingsBackfillCmd)
	rootCmd.AddCommand(embeddingsCmd)
}

func runEmbeddingsBackfill(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	embedder, err := embedding.New(embedding.Config{
		APIKey: config.Embeddings.APIKey,
		Model:  config.Embeddings.Model,
	})
	if err != nil {
		fatalf("configuring embeddings: %v", err)
	}

	databaseIDs := make([]string, 0, 1)
	if ref, _ := cmd.Flags().GetString("database"); ref != "" {
		databaseIDs = append(databaseIDs, mustDatabase(ctx, s, ref).ID)
	} else {
		dbs, err := s.ListDatabases(ctx)
		if err != nil {
			fatalf("listing databases: %v", err)
		}
		for _, db := range dbs {
			databaseIDs = append(databaseIDs, db.ID)
		}
	}

	total := 0
	for _, databaseID := range databaseIDs {
		queries, err := s.ListQueriesMissingEmbedding(ctx, databaseID)
		if err != nil {
			fatalf("listing queries: %v", err)
		}
		for _, q := range queries {
			text := q.Name
			if text == "" {
				text = q.ValidatedSQL
			}
			vector, err := embedder.Embed(ctx, text)
			if err != nil {
				fatalf("embedding %q: %v", text, err)
			}
			if err := s.SetQueryEmbedding(ctx, q.ID, vector); err != nil {
				fatalf("saving embedding: %v", err)
			}
			total++
		}
	}
	fmt.Printf("Embedded %d queries.\n", total)
}
