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
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage past conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations of a database",
	Run:   runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a conversation's visible messages",
	Args:  cobra.ExactArgs(1),
	Run:   runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	Run:   runConversationsDelete,
}

func init() {
	conversationsListCmd.Flags().String("database", "", "database to list (name or id)")
	conversationsShowCmd.Flags().Bool("all", false, "include hidden tool steps")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}

func runConversationsList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	ref, _ := cmd.Flags().GetString("database")
	db := mustDatabase(ctx, s, ref)
	convs, err := s.ListConversations(ctx, db.ID)
	if err != nil {
		fatalf("listing conversations: %v", err)
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	for _, conv := range convs {
		name := conv.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s  %s  %s\n", conv.ID, conv.CreatedAt.Format("2006-01-02 15:04"), name)
	}
}

func runConversationsShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	all, _ := cmd.Flags().GetBool("all")
	messages, err := s.ListMessages(ctx, args[0])
	if err != nil {
		fatalf("listing messages: %v", err)
	}
	for _, msg := range messages {
		if !all && !msg.Display {
			continue
		}
		label := string(msg.Role)
		if msg.Name != "" {
			label += " " + msg.Name
		}
		content := msg.Content
		if content == "" && msg.FunctionCall != nil {
			content = fmt.Sprintf("calls %s", msg.FunctionCall.Name)
		}
		fmt.Printf("[%s] %s\n", label, content)
	}
}

func runConversationsDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	if err := s.DeleteConversation(ctx, args[0]); err != nil {
		fatalf("deleting conversation: %v", err)
	}
	fmt.Println("Deleted.")
}
