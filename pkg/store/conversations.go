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

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/datachat-io/datachat/pkg/types"
)

// CreateConversation inserts conv, assigning ID and CreatedAt when empty.
func (s *Store) CreateConversation(ctx context.Context, conv *types.Conversation) error {
	if conv.ID == "" {
		conv.ID = newID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, name, owner_id, database_id, project_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Name, conv.OwnerID, conv.DatabaseID, conv.ProjectID, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation fetches a conversation by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	var conv types.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, database_id, project_id, created_at
		 FROM conversations WHERE id = ?`, id).
		Scan(&conv.ID, &conv.Name, &conv.OwnerID, &conv.DatabaseID, &conv.ProjectID, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations returns the conversations of one database, newest first.
func (s *Store) ListConversations(ctx context.Context, databaseID string) ([]*types.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, database_id, project_id, created_at
		 FROM conversations WHERE database_id = ?
		 ORDER BY created_at DESC, id`, databaseID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []*types.Conversation
	for rows.Next() {
		var conv types.Conversation
		if err := rows.Scan(&conv.ID, &conv.Name, &conv.OwnerID, &conv.DatabaseID,
			&conv.ProjectID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, &conv)
	}
	return out, rows.Err()
}

// RenameConversation sets the conversation name.
func (s *Store) RenameConversation(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("renaming conversation: %w", err)
	}
	return requireRow(res)
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return requireRow(res)
}

// AppendMessage appends msg to its conversation log, assigning ID and
// CreatedAt when empty. Insertion order is the conversation order.
func (s *Store) AppendMessage(ctx context.Context, msg *types.Message) error {
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}
	var fc any
	if msg.FunctionCall != nil {
		b, err := json.Marshal(msg.FunctionCall)
		if err != nil {
			return fmt.Errorf("encoding function call: %w", err)
		}
		fc = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, name, content,
			function_call, query_id, image, done, display, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Name, msg.Content,
		fc, msg.QueryID, msg.Image, msg.Done, msg.Display, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns the full message log in conversation order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, name, content, function_call,
			query_id, image, done, display, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// LastMessage returns the most recent message of a conversation, or
// ErrNotFound on an empty log.
func (s *Store) LastMessage(ctx context.Context, conversationID string) (*types.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, role, name, content, function_call,
			query_id, image, done, display, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY rowid DESC LIMIT 1`,
		conversationID)
	msg, err := scanMessage(row)
	if errors.Is(err, errNoMessage) {
		return nil, ErrNotFound
	}
	return msg, err
}

// DeleteMessagesFrom removes messageID and every later message of the
// conversation. Used by Regenerate to rewind the log to a user turn.
func (s *Store) DeleteMessagesFrom(ctx context.Context, conversationID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages
		 WHERE conversation_id = ?
		   AND rowid >= (SELECT rowid FROM messages WHERE id = ? AND conversation_id = ?)`,
		conversationID, messageID, conversationID)
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return requireRow(res)
}

// SetMessageDisplay flips a message between rendered and plumbing.
func (s *Store) SetMessageDisplay(ctx context.Context, id string, display bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET display = ? WHERE id = ?`, display, id)
	if err != nil {
		return fmt.Errorf("updating message display: %w", err)
	}
	return requireRow(res)
}

// SetMessageQueryID links a message to the query record it produced.
func (s *Store) SetMessageQueryID(ctx context.Context, id, queryID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET query_id = ? WHERE id = ?`, queryID, id)
	if err != nil {
		return fmt.Errorf("updating message query id: %w", err)
	}
	return requireRow(res)
}

var errNoMessage = errors.New("no message")

func scanMessage(row rowScanner) (*types.Message, error) {
	var (
		msg types.Message
		fc  sql.NullString
	)
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Name,
		&msg.Content, &fc, &msg.QueryID, &msg.Image, &msg.Done, &msg.Display,
		&msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoMessage
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	if fc.Valid && fc.String != "" {
		msg.FunctionCall = &types.FunctionCall{}
		if err := json.Unmarshal([]byte(fc.String), msg.FunctionCall); err != nil {
			return nil, fmt.Errorf("decoding function call: %w", err)
		}
	}
	return &msg, nil
}
