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

package builtin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/datachat-io/datachat/pkg/store"
	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// noteSession tracks which note is open. Opening a note attaches the
// NOTE_WRITE tool to the registry; closing it detaches the tool again, so
// the model only sees NOTE_WRITE while a note is open.
type noteSession struct {
	store     *store.Store
	registry  *tools.Registry
	projectID string

	mu     sync.Mutex
	openID string
}

// AttachNoteTools registers the note management tools on the registry.
func AttachNoteTools(registry *tools.Registry, s *store.Store, projectID string) error {
	session := &noteSession{store: s, registry: registry, projectID: projectID}
	for _, t := range []tools.Tool{
		&noteCreateTool{session},
		&noteListTool{session},
		&noteDeleteTool{session},
		&noteOpenTool{session},
		&noteCloseTool{session},
	} {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

type noteCreateTool struct{ s *noteSession }

var _ tools.Tool = (*noteCreateTool)(nil)

func (t *noteCreateTool) Name() string { return "NOTE_CREATE" }

func (t *noteCreateTool) Description() string {
	return "Create a new note in the current project."
}

func (t *noteCreateTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"title":   tools.NewStringSchema("the note title"),
		"content": tools.NewStringSchema("initial content"),
	}, []string{"title"})
}

func (t *noteCreateTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	title := strings.TrimSpace(tools.String(args, "title"))
	if title == "" {
		return nil, fmt.Errorf("title is empty")
	}
	n := &types.Note{
		ProjectID: t.s.projectID,
		Title:     title,
		Content:   tools.String(args, "content"),
	}
	if err := t.s.store.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return &tools.Result{Content: fmt.Sprintf("Note %q created with id %s.", title, n.ID)}, nil
}

type noteListTool struct{ s *noteSession }

var _ tools.Tool = (*noteListTool)(nil)

func (t *noteListTool) Name() string { return "NOTE_LIST" }

func (t *noteListTool) Description() string {
	return "List the notes of the current project."
}

func (t *noteListTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(nil, nil)
}

func (t *noteListTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	notes, err := t.s.store.ListNotes(ctx, t.s.projectID)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return &tools.Result{Content: "No notes."}, nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d notes", len(notes))
	for _, n := range notes {
		fmt.Fprintf(&sb, "\n- %s (%s)", n.Title, n.ID)
	}
	return &tools.Result{Content: sb.String()}, nil
}

type noteDeleteTool struct{ s *noteSession }

var _ tools.Tool = (*noteDeleteTool)(nil)

func (t *noteDeleteTool) Name() string { return "NOTE_DELETE" }

func (t *noteDeleteTool) Description() string {
	return "Delete a note by id."
}

func (t *noteDeleteTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"note_id": tools.NewStringSchema("id of the note to delete"),
	}, []string{"note_id"})
}

func (t *noteDeleteTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	id := tools.String(args, "note_id")
	if err := t.s.store.DeleteNote(ctx, id); err != nil {
		return nil, err
	}
	t.s.mu.Lock()
	if t.s.openID == id {
		t.s.openID = ""
		t.s.registry.Unregister("NOTE_WRITE")
	}
	t.s.mu.Unlock()
	return &tools.Result{Content: "Note deleted."}, nil
}

type noteOpenTool struct{ s *noteSession }

var _ tools.Tool = (*noteOpenTool)(nil)

func (t *noteOpenTool) Name() string { return "NOTE_OPEN" }

func (t *noteOpenTool) Description() string {
	return "Open a note for editing. While a note is open the NOTE_WRITE tool is available."
}

func (t *noteOpenTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"note_id": tools.NewStringSchema("id of the note to open"),
	}, []string{"note_id"})
}

func (t *noteOpenTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	id := tools.String(args, "note_id")
	n, err := t.s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.openID == "" {
		if err := t.s.registry.Register(&noteWriteTool{t.s}); err != nil {
			return nil, err
		}
	}
	t.s.openID = id
	return &tools.Result{
		Content: fmt.Sprintf("Note %q opened:\n%s", n.Title, n.Content),
	}, nil
}

type noteCloseTool struct{ s *noteSession }

var _ tools.Tool = (*noteCloseTool)(nil)

func (t *noteCloseTool) Name() string { return "NOTE_CLOSE" }

func (t *noteCloseTool) Description() string {
	return "Close the currently open note."
}

func (t *noteCloseTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(nil, nil)
}

func (t *noteCloseTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.openID == "" {
		return nil, fmt.Errorf("no note is open")
	}
	t.s.openID = ""
	t.s.registry.Unregister("NOTE_WRITE")
	return &tools.Result{Content: "Note closed."}, nil
}

type noteWriteTool struct{ s *noteSession }

var _ tools.Tool = (*noteWriteTool)(nil)

func (t *noteWriteTool) Name() string { return "NOTE_WRITE" }

func (t *noteWriteTool) Description() string {
	return "Replace the content of the currently open note."
}

func (t *noteWriteTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"content": tools.NewStringSchema("the full new content of the note"),
	}, []string{"content"})
}

func (t *noteWriteTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	t.s.mu.Lock()
	id := t.s.openID
	t.s.mu.Unlock()
	if id == "" {
		return nil, fmt.Errorf("no note is open")
	}
	if err := t.s.store.UpdateNoteContent(ctx, id, tools.String(args, "content")); err != nil {
		return nil, err
	}
	return &tools.Result{Content: "Note updated."}, nil
}
