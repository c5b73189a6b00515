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

// Package chat runs the conversation loop: it feeds the message log to the
// model, executes the tool calls the model requests, records every step in
// the store and keeps going until the model produces a final answer, a stop
// is requested, or the attempt ceiling is hit.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datachat-io/datachat/internal/log"
	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/llm"
	"github.com/datachat-io/datachat/pkg/resultshape"
	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// MaxAttempts is the ceiling on model calls per user turn. It bounds
// self-correction loops that never converge.
const MaxAttempts = 10

// doneMarker is the token the model appends to a final answer.
const doneMarker = "DONE"

// maxConversationNameLen caps the name derived from the first question.
const maxConversationNameLen = 80

// Outcome describes how a loop run ended.
type Outcome int

const (
	// OutcomeDone means the model produced a final answer.
	OutcomeDone Outcome = iota

	// OutcomeStopped means a cooperative stop request ended the run.
	OutcomeStopped

	// OutcomeIncomplete means the attempt ceiling was reached first.
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeStopped:
		return "stopped"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Config assembles a Chat.
type Config struct {
	Store    *store.Store
	Cache    *llm.Cache
	Registry *tools.Registry
	Stops    *StopRegistry
	Lake     datalake.Datalake
	Database *types.Database

	// Template defaults to the built-in prompt template.
	Template *Template

	// MaxAttempts defaults to MaxAttempts.
	MaxAttempts int

	// ShouldPause decides whether a text reply ends the turn. The default
	// pauses on any reply without a function call.
	ShouldPause func(resp *llm.Response) bool

	// OnMessage, when non-nil, observes every message as it is recorded.
	OnMessage func(*types.Message)
}

// Chat drives conversations against one database.
type Chat struct {
	store       *store.Store
	cache       *llm.Cache
	registry    *tools.Registry
	stops       *StopRegistry
	lake        datalake.Datalake
	database    *types.Database
	template    *Template
	maxAttempts int
	shouldPause func(resp *llm.Response) bool
	onMessage   func(*types.Message)
}

// New creates a Chat from cfg.
func New(cfg Config) (*Chat, error) {
	if cfg.Store == nil || cfg.Cache == nil || cfg.Registry == nil ||
		cfg.Stops == nil || cfg.Database == nil {
		return nil, fmt.Errorf("chat: store, cache, registry, stops and database are required")
	}
	c := &Chat{
		store:       cfg.Store,
		cache:       cfg.Cache,
		registry:    cfg.Registry,
		stops:       cfg.Stops,
		lake:        cfg.Lake,
		database:    cfg.Database,
		template:    cfg.Template,
		maxAttempts: cfg.MaxAttempts,
		shouldPause: cfg.ShouldPause,
		onMessage:   cfg.OnMessage,
	}
	if c.template == nil {
		c.template = DefaultTemplate()
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = MaxAttempts
	}
	if c.shouldPause == nil {
		c.shouldPause = func(resp *llm.Response) bool { return resp.FunctionCall == nil }
	}
	return c, nil
}

// Ask appends the user's question to the conversation and runs the loop
// until an outcome is reached. The first question names the conversation.
func (c *Chat) Ask(ctx context.Context, conversationID, question string) (Outcome, error) {
	if err := c.stops.Begin(conversationID); err != nil {
		return OutcomeStopped, err
	}
	outcome, err := c.ask(ctx, conversationID, question)
	c.stops.End(conversationID, err)
	return outcome, err
}

func (c *Chat) ask(ctx context.Context, conversationID, question string) (Outcome, error) {
	conv, err := c.store.GetConversation(ctx, conversationID)
	if err != nil {
		return OutcomeStopped, err
	}
	if conv.Name == "" {
		if err := c.store.RenameConversation(ctx, conv.ID, truncateName(question)); err != nil {
			return OutcomeStopped, err
		}
	}
	if err := c.append(ctx, &types.Message{
		ConversationID: conv.ID,
		Role:           types.RoleUser,
		Content:        question,
		Display:        true,
	}); err != nil {
		return OutcomeStopped, err
	}
	return c.runLoop(ctx, conv.ID)
}

// Regenerate rewinds the conversation and runs the loop again. A non-empty
// fromMessageID deletes that message's suffix; an assistant or function
// target is deleted too, a user target is kept. An empty fromMessageID
// rewinds to just after the last user message.
func (c *Chat) Regenerate(ctx context.Context, conversationID, fromMessageID string) (Outcome, error) {
	if err := c.stops.Begin(conversationID); err != nil {
		return OutcomeStopped, err
	}
	outcome, err := c.regenerate(ctx, conversationID, fromMessageID)
	c.stops.End(conversationID, err)
	return outcome, err
}

func (c *Chat) regenerate(ctx context.Context, conversationID, fromMessageID string) (Outcome, error) {
	messages, err := c.store.ListMessages(ctx, conversationID)
	if err != nil {
		return OutcomeStopped, err
	}
	from := -1
	if fromMessageID == "" {
		for i, m := range messages {
			if m.Role == types.RoleUser {
				from = i + 1
			}
		}
		if from == -1 {
			return OutcomeStopped, fmt.Errorf("conversation has no user message to regenerate from")
		}
	} else {
		for i, m := range messages {
			if m.ID == fromMessageID {
				from = i
				if m.Role == types.RoleUser {
					from = i + 1
				}
				break
			}
		}
		if from == -1 {
			return OutcomeStopped, fmt.Errorf("message %s is not part of the conversation", fromMessageID)
		}
	}
	if from < len(messages) {
		if err := c.store.DeleteMessagesFrom(ctx, conversationID, messages[from].ID); err != nil {
			return OutcomeStopped, err
		}
	}
	return c.runLoop(ctx, conversationID)
}

// Query records a user-issued SQL_QUERY call and its result in the
// conversation without a model call. The query failure path renders the
// error into the function message, like a model-issued call would.
func (c *Chat) Query(ctx context.Context, conversationID, sqlText string) error {
	if err := c.stops.Begin(conversationID); err != nil {
		return err
	}
	err := c.query(ctx, conversationID, sqlText)
	c.stops.End(conversationID, err)
	return err
}

func (c *Chat) query(ctx context.Context, conversationID, sqlText string) error {
	if _, err := c.store.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	fc := &types.FunctionCall{
		Name:      "SQL_QUERY",
		Arguments: map[string]any{"query": sqlText},
	}
	call := &types.Message{
		ConversationID: conversationID,
		Role:           types.RoleAssistant,
		FunctionCall:   fc,
		Display:        true,
	}
	if err := c.append(ctx, call); err != nil {
		return err
	}
	result := c.execute(ctx, fc)
	reply := &types.Message{
		ConversationID: conversationID,
		Role:           types.RoleFunction,
		Name:           fc.Name,
		Content:        result.Content,
		Image:          result.Image,
		Display:        true,
	}
	if err := c.append(ctx, reply); err != nil {
		return err
	}
	if result.QueryID != "" {
		return c.store.SetMessageQueryID(ctx, call.ID, result.QueryID)
	}
	return nil
}

// RunQuery re-executes a stored query and returns the rendered result.
func (c *Chat) RunQuery(ctx context.Context, queryID string) (string, error) {
	if c.lake == nil {
		return "", fmt.Errorf("no database connection")
	}
	q, err := c.store.GetQuery(ctx, queryID)
	if err != nil {
		return "", err
	}
	res, err := c.lake.Query(ctx, q.ValidatedSQL)
	if err != nil {
		return "", err
	}
	return resultshape.RenderResult(res), nil
}

func (c *Chat) runLoop(ctx context.Context, conversationID string) (Outcome, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.stops.ShouldStop(conversationID) {
			log.Info("conversation stopped",
				zap.String("conversation", conversationID),
				zap.Int("attempt", attempt))
			return OutcomeStopped, nil
		}
		if err := ctx.Err(); err != nil {
			return OutcomeStopped, err
		}

		req, err := c.buildRequest(ctx, conversationID)
		if err != nil {
			return OutcomeStopped, err
		}
		resp, err := c.cache.Fetch(ctx, req)
		if err != nil {
			return OutcomeStopped, err
		}

		if resp.FunctionCall == nil {
			content, done := stripDoneMarker(resp.Content)
			if err := c.append(ctx, &types.Message{
				ConversationID: conversationID,
				Role:           types.RoleAssistant,
				Content:        content,
				Done:           done,
				Display:        true,
			}); err != nil {
				return OutcomeStopped, err
			}
			if done || c.shouldPause(resp) {
				return OutcomeDone, nil
			}
			continue
		}

		stop, err := c.step(ctx, conversationID, resp)
		if err != nil {
			return OutcomeStopped, err
		}
		if stop {
			return OutcomeDone, nil
		}
	}
	log.Warn("attempt ceiling reached", zap.String("conversation", conversationID))
	return OutcomeIncomplete, nil
}

// step records a function call, executes it and records its result. Tool
// failures become function output so the model can correct itself; only
// storage failures abort the loop.
func (c *Chat) step(ctx context.Context, conversationID string, resp *llm.Response) (bool, error) {
	fc := resp.FunctionCall
	call := &types.Message{
		ConversationID: conversationID,
		Role:           types.RoleAssistant,
		Content:        resp.Content,
		FunctionCall:   fc,
	}
	if err := c.append(ctx, call); err != nil {
		return false, err
	}

	result := c.execute(ctx, fc)
	reply := &types.Message{
		ConversationID: conversationID,
		Role:           types.RoleFunction,
		Name:           fc.Name,
		Content:        result.Content,
		Image:          result.Image,
	}
	if err := c.append(ctx, reply); err != nil {
		return false, err
	}
	if result.QueryID != "" {
		if err := c.store.SetMessageQueryID(ctx, call.ID, result.QueryID); err != nil {
			return false, err
		}
	}
	return result.StopLoop, nil
}

// execute runs one tool call. Every failure path returns a result whose
// content explains the problem to the model.
func (c *Chat) execute(ctx context.Context, fc *types.FunctionCall) *tools.Result {
	tool, ok := c.registry.Get(fc.Name)
	if !ok {
		return &tools.Result{
			Content: fmt.Sprintf("Unknown function %s.", fc.Name),
		}
	}
	if err := tools.ValidateArgs(tool, fc.Arguments); err != nil {
		return &tools.Result{Content: resultshape.RenderError(err)}
	}
	result, err := tool.Execute(ctx, fc.Arguments)
	if err != nil {
		log.Debug("tool execution failed",
			zap.String("tool", fc.Name), zap.Error(err))
		return &tools.Result{Content: resultshape.RenderError(err)}
	}
	return result
}

func (c *Chat) buildRequest(ctx context.Context, conversationID string) (*llm.Request, error) {
	system, err := c.template.RenderSystem(SystemData{
		Engine:      string(c.database.Engine),
		Name:        c.database.Name,
		Description: c.database.Description,
		Tables:      FormatTables(c.database.TablesMetadata),
		Memory:      c.database.Memory,
	})
	if err != nil {
		return nil, err
	}

	stored, err := c.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]*types.Message, 0, len(c.template.Examples)+len(stored))
	messages = append(messages, c.template.Examples...)
	for i, m := range stored {
		if i == 0 {
			cp := *m
			cp.Content = c.contextPrefix() + cp.Content
			messages = append(messages, &cp)
			continue
		}
		messages = append(messages, m)
	}

	return &llm.Request{
		System:   system,
		Messages: messages,
		Tools:    c.registry.Snapshot(),
	}, nil
}

// contextPrefix anchors the first message of the real conversation to the
// database it runs against, separating it from the few-shot examples.
func (c *Chat) contextPrefix() string {
	return fmt.Sprintf("In the %s database %q: ", c.database.Engine, c.database.Name)
}

func (c *Chat) append(ctx context.Context, msg *types.Message) error {
	if err := c.store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
	return nil
}

// stripDoneMarker removes a leading or trailing DONE token and reports
// whether one was present. The marker must stand alone; words containing
// it are left untouched.
func stripDoneMarker(content string) (string, bool) {
	trimmed := strings.Trim(content, " \n\t")
	if trimmed == doneMarker {
		return "", true
	}
	done := false
	if strings.HasSuffix(trimmed, " "+doneMarker) || strings.HasSuffix(trimmed, "\n"+doneMarker) {
		trimmed = strings.TrimRight(trimmed[:len(trimmed)-len(doneMarker)], " \n\t")
		done = true
	}
	if strings.HasPrefix(trimmed, doneMarker+" ") || strings.HasPrefix(trimmed, doneMarker+"\n") {
		trimmed = strings.TrimLeft(trimmed[len(doneMarker):], " \n\t")
		done = true
	}
	if done {
		return trimmed, true
	}
	return content, false
}

func truncateName(question string) string {
	name := strings.TrimSpace(question)
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = name[:idx]
	}
	runes := []rune(name)
	if len(runes) > maxConversationNameLen {
		name = string(runes[:maxConversationNameLen])
	}
	return name
}
