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

package chat

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/datachat-io/datachat/pkg/types"
)

//go:embed template.md
var defaultTemplateText string

// Template is a parsed prompt template: the system section plus the few-shot
// example messages sent ahead of the real conversation.
type Template struct {
	systemText string
	system     *texttemplate.Template
	Examples   []*types.Message
}

// SystemData fills the system section's placeholders.
type SystemData struct {
	Engine      string
	Name        string
	Description string
	Tables      string
	Memory      string
}

var (
	sectionRe      = regexp.MustCompile(`^## +(\w+)(?: +(\S+))?\s*$`)
	functionLineRe = regexp.MustCompile(`^> *([A-Za-z0-9_]+)\((.*)\)\s*$`)
	argPairRe      = regexp.MustCompile(`(\w+) *= *"((?:[^"\\]|\\.)*)"`)
)

// ParseTemplate parses a prompt template. Sections start with "## <role>";
// the recognized roles are system, example_user, example_assistant and
// example_function (with the tool name after it). Inside assistant sections
// a line of the form `> TOOL(arg="value")` becomes a function call example.
func ParseTemplate(text string) (*Template, error) {
	t := &Template{}
	var (
		role    string
		name    string
		content []string
	)

	flush := func() error {
		body := strings.TrimSpace(strings.Join(content, "\n"))
		content = nil
		switch role {
		case "":
			if body != "" {
				return fmt.Errorf("content before the first section header")
			}
			return nil
		case "system":
			if t.systemText != "" {
				return fmt.Errorf("duplicate system section")
			}
			t.systemText = body
			return nil
		case "example_user":
			t.Examples = append(t.Examples, &types.Message{
				Role: types.RoleUser, Name: "example_user", Content: body,
			})
			return nil
		case "example_assistant":
			msg := &types.Message{Role: types.RoleAssistant, Name: "example_assistant"}
			if m := functionLineRe.FindStringSubmatch(body); m != nil {
				fc, err := parseFunctionLine(m)
				if err != nil {
					return err
				}
				msg.FunctionCall = fc
			} else {
				msg.Content = body
			}
			t.Examples = append(t.Examples, msg)
			return nil
		case "example_function":
			if name == "" {
				return fmt.Errorf("example_function section needs a tool name")
			}
			t.Examples = append(t.Examples, &types.Message{
				Role: types.RoleFunction, Name: name, Content: body,
			})
			return nil
		default:
			return fmt.Errorf("unknown section %q", role)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := sectionRe.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			role, name = m[1], m[2]
			continue
		}
		content = append(content, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if t.systemText == "" {
		return nil, fmt.Errorf("template has no system section")
	}

	tmpl, err := texttemplate.New("system").Parse(t.systemText)
	if err != nil {
		return nil, fmt.Errorf("parsing system section: %w", err)
	}
	t.system = tmpl
	return t, nil
}

func parseFunctionLine(m []string) (*types.FunctionCall, error) {
	fc := &types.FunctionCall{Name: m[1], Arguments: map[string]any{}}
	for _, pair := range argPairRe.FindAllStringSubmatch(m[2], -1) {
		value := strings.ReplaceAll(pair[2], `\"`, `"`)
		fc.Arguments[pair[1]] = value
	}
	return fc, nil
}

// RenderSystem fills the system section with the database's details.
func (t *Template) RenderSystem(data SystemData) (string, error) {
	var sb strings.Builder
	if err := t.system.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return sb.String(), nil
}

// DefaultTemplate returns the built-in prompt template.
func DefaultTemplate() *Template {
	t, err := ParseTemplate(defaultTemplateText)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded template: %v", err))
	}
	return t
}

// FormatTables renders table metadata as the compact listing used in the
// system prompt, one table per line.
func FormatTables(tables []types.TableMetadata) string {
	var sb strings.Builder
	for i, table := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		name := table.Name
		if table.Schema != "" && table.Schema != "main" && table.Schema != "public" {
			name = table.Schema + "." + name
		}
		sb.WriteString("- " + name)
		if table.IsView {
			sb.WriteString(" (view)")
		}
		if len(table.Columns) > 0 {
			cols := make([]string, len(table.Columns))
			for j, c := range table.Columns {
				cols[j] = c.Name + " " + c.Type
			}
			sb.WriteString(": " + strings.Join(cols, ", "))
		}
	}
	return sb.String()
}
