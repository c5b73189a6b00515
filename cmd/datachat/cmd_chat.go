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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datachat-io/datachat/internal/log"
	"github.com/datachat-io/datachat/pkg/chat"
	"github.com/datachat-io/datachat/pkg/embedding"
	"github.com/datachat-io/datachat/pkg/llm"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/tools/builtin"
	"github.com/datachat-io/datachat/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation with a database",
	Long: `Start an interactive conversation with a registered database.

Each question runs the agent loop: the model writes SQL, executes it
through the tools, corrects itself on errors and answers with the
results. Ctrl+C stops the current run at its next checkpoint.

In-session commands:
  /sql <query>  run SQL yourself, recorded in the conversation
  /regenerate   rerun the loop from the last question
  /history      print the conversation so far
  /quit         leave the session`,
	Run: runChat,
}

func init() {
	chatCmd.Flags().String("database", "", "database to converse with (name or id)")
	chatCmd.Flags().String("conversation", "", "conversation id to resume")
	chatCmd.Flags().String("project", "", "project for note taking, created on first use")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	s := mustStore(ctx)
	defer s.Close()

	ref, _ := cmd.Flags().GetString("database")
	db := mustDatabase(ctx, s, ref)
	lake := mustLake(db)
	defer lake.Close()

	registry := tools.NewRegistry()
	if err := registry.Register(builtin.NewSQLQueryTool(lake, s, db.ID)); err != nil {
		fatalf("registering tools: %v", err)
	}
	_ = registry.Register(builtin.NewSaveToMemoryTool(s, db.ID))
	_ = registry.Register(builtin.NewPlotWidgetTool(lake, nil))
	_ = registry.Register(builtin.NewSubmitTool(s, db.ID, nil))
	if err := builtin.AttachDBTTools(registry, db); err != nil {
		fatalf("attaching dbt tools: %v", err)
	}
	if projectName, _ := cmd.Flags().GetString("project"); projectName != "" {
		project := resolveProject(ctx, s, db, projectName)
		if err := builtin.AttachNoteTools(registry, s, project.ID); err != nil {
			fatalf("attaching note tools: %v", err)
		}
	}
	if embedder, err := embedding.New(embedding.Config{
		APIKey: config.Embeddings.APIKey,
		Model:  config.Embeddings.Model,
	}); err == nil {
		_ = registry.Register(builtin.NewMemorySearchTool(s, embedder, db.ID))
	} else {
		log.Debug("memory search disabled", zap.Error(err))
	}

	conv := resolveConversation(ctx, s, db, cmd)
	stops := chat.NewStopRegistry(nil)

	c, err := chat.New(chat.Config{
		Store:    s,
		Cache:    llm.NewCache(s, mustProvider()),
		Registry: registry,
		Stops:    stops,
		Lake:     lake,
		Database: db,
		OnMessage: func(msg *types.Message) {
			printMessage(msg)
		},
	})
	if err != nil {
		fatalf("starting chat: %v", err)
	}

	// Ctrl+C requests a cooperative stop; a second one exits.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		fmt.Fprintln(os.Stderr, "\nstopping after the current step (Ctrl+C again to exit)")
		stops.RequestStop(conv.ID)
		<-signals
		os.Exit(1)
	}()

	fmt.Printf("Connected to %s (%s). Ask a question, /quit to leave.\n", db.Name, db.Engine)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var outcome chat.Outcome
		switch {
		case line == "/quit" || line == "/exit":
			return
		case line == "/history":
			printHistory(ctx, s, conv.ID)
			continue
		case strings.HasPrefix(line, "/sql "):
			err = c.Query(ctx, conv.ID, strings.TrimPrefix(line, "/sql "))
		case line == "/regenerate":
			outcome, err = c.Regenerate(ctx, conv.ID, "")
		default:
			outcome, err = c.Ask(ctx, conv.ID, line)
		}
		switch {
		case errors.Is(err, chat.ErrConversationBusy):
			fmt.Println("The conversation is still running.")
		case err != nil:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		case outcome == chat.OutcomeStopped:
			fmt.Println("(stopped)")
		case outcome == chat.OutcomeIncomplete:
			fmt.Println("(the agent gave up after too many attempts)")
		}
	}
}

func resolveProject(ctx context.Context, s *store.Store, db *types.Database, name string) *types.Project {
	projects, err := s.ListProjects(ctx, db.ID)
	if err != nil {
		fatalf("listing projects: %v", err)
	}
	for _, p := range projects {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	p := &types.Project{Name: name, DatabaseID: db.ID}
	if err := s.CreateProject(ctx, p); err != nil {
		fatalf("creating project: %v", err)
	}
	return p
}

func resolveConversation(ctx context.Context, s *store.Store, db *types.Database, cmd *cobra.Command) *types.Conversation {
	if id, _ := cmd.Flags().GetString("conversation"); id != "" {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			fatalf("resuming conversation %s: %v", id, err)
		}
		if conv.DatabaseID != db.ID {
			fatalf("conversation %s belongs to another database", id)
		}
		return conv
	}
	conv := &types.Conversation{DatabaseID: db.ID}
	if err := s.CreateConversation(ctx, conv); err != nil {
		fatalf("creating conversation: %v", err)
	}
	return conv
}

// printMessage renders one recorded message to the terminal. Hidden
// intermediate steps are only surfaced at debug level.
func printMessage(msg *types.Message) {
	if !msg.Display {
		log.Debug("step",
			zap.String("role", string(msg.Role)),
			zap.String("name", msg.Name),
			zap.String("content", msg.Content))
		if len(msg.Image) > 0 {
			fmt.Printf("[chart]\n%s\n", msg.Image)
		}
		return
	}
	if msg.Content != "" && (msg.Role == types.RoleAssistant || msg.Role == types.RoleFunction) {
		fmt.Printf("\n%s\n", msg.Content)
	}
}

func printHistory(ctx context.Context, s *store.Store, conversationID string) {
	messages, err := s.ListMessages(ctx, conversationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	for _, msg := range messages {
		if !msg.Display {
			continue
		}
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
}
