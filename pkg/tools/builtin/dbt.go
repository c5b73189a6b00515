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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/datachat-io/datachat/pkg/tools"
	"github.com/datachat-io/datachat/pkg/types"
)

// dbtModel is the subset of a manifest node the tools expose.
type dbtModel struct {
	Name        string
	Description string
	Path        string
	RawSQL      string
	Columns     []types.ColumnMetadata
}

type dbtCatalogNode struct {
	Columns map[string]struct {
		Type    string `json:"type"`
		Comment string `json:"comment"`
	} `json:"columns"`
}

type dbtManifestNode struct {
	Name             string `json:"name"`
	ResourceType     string `json:"resource_type"`
	Description      string `json:"description"`
	OriginalFilePath string `json:"original_file_path"`
	RawCode          string `json:"raw_code"`
	RawSQL           string `json:"raw_sql"`
}

// parseDBTModels merges the manifest and catalog artifacts into the model
// list. Only resource_type "model" nodes are kept.
func parseDBTModels(manifest, catalog []byte) ([]dbtModel, error) {
	var m struct {
		Nodes map[string]dbtManifestNode `json:"nodes"`
	}
	if err := json.Unmarshal(manifest, &m); err != nil {
		return nil, fmt.Errorf("decoding dbt manifest: %w", err)
	}
	var c struct {
		Nodes map[string]dbtCatalogNode `json:"nodes"`
	}
	if len(catalog) > 0 {
		if err := json.Unmarshal(catalog, &c); err != nil {
			return nil, fmt.Errorf("decoding dbt catalog: %w", err)
		}
	}

	var models []dbtModel
	for id, node := range m.Nodes {
		if node.ResourceType != "model" {
			continue
		}
		raw := node.RawCode
		if raw == "" {
			raw = node.RawSQL
		}
		model := dbtModel{
			Name:        node.Name,
			Description: node.Description,
			Path:        node.OriginalFilePath,
			RawSQL:      raw,
		}
		if cat, ok := c.Nodes[id]; ok {
			names := make([]string, 0, len(cat.Columns))
			for name := range cat.Columns {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				col := cat.Columns[name]
				model.Columns = append(model.Columns, types.ColumnMetadata{
					Name:    name,
					Type:    col.Type,
					Comment: col.Comment,
				})
			}
		}
		models = append(models, model)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// AttachDBTTools registers the dbt catalog tools when the database carries
// a manifest. Without one the registry is left untouched.
func AttachDBTTools(registry *tools.Registry, db *types.Database) error {
	if len(db.DBTManifest) == 0 {
		return nil
	}
	models, err := parseDBTModels(db.DBTManifest, db.DBTCatalog)
	if err != nil {
		return err
	}
	for _, t := range []tools.Tool{
		&dbtModelListTool{models: models},
		&dbtSearchModelsTool{models: models},
		&dbtFetchModelTool{models: models},
	} {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

type dbtModelListTool struct{ models []dbtModel }

var _ tools.Tool = (*dbtModelListTool)(nil)

func (t *dbtModelListTool) Name() string { return "DBT_MODEL_LIST" }

func (t *dbtModelListTool) Description() string {
	return "List the dbt models defined for this database."
}

func (t *dbtModelListTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(nil, nil)
}

func (t *dbtModelListTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	return &tools.Result{Content: renderModelList(t.models)}, nil
}

type dbtSearchModelsTool struct{ models []dbtModel }

var _ tools.Tool = (*dbtSearchModelsTool)(nil)

func (t *dbtSearchModelsTool) Name() string { return "DBT_SEARCH_MODELS" }

func (t *dbtSearchModelsTool) Description() string {
	return "Search dbt models by name or description."
}

func (t *dbtSearchModelsTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"search": tools.NewStringSchema("text to look for"),
	}, []string{"search"})
}

func (t *dbtSearchModelsTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	search := strings.ToLower(tools.String(args, "search"))
	if search == "" {
		return nil, fmt.Errorf("search is empty")
	}
	var matches []dbtModel
	for _, m := range t.models {
		if strings.Contains(strings.ToLower(m.Name), search) ||
			strings.Contains(strings.ToLower(m.Description), search) {
			matches = append(matches, m)
		}
	}
	return &tools.Result{Content: renderModelList(matches)}, nil
}

type dbtFetchModelTool struct{ models []dbtModel }

var _ tools.Tool = (*dbtFetchModelTool)(nil)

func (t *dbtFetchModelTool) Name() string { return "DBT_FETCH_MODEL" }

func (t *dbtFetchModelTool) Description() string {
	return "Fetch the full definition of one dbt model."
}

func (t *dbtFetchModelTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"name": tools.NewStringSchema("the model name"),
	}, []string{"name"})
}

func (t *dbtFetchModelTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	name := tools.String(args, "name")
	for _, m := range t.models {
		if m.Name != name {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Model %s (%s)\n", m.Name, m.Path)
		if m.Description != "" {
			sb.WriteString(m.Description + "\n")
		}
		if len(m.Columns) > 0 {
			sb.WriteString("Columns:\n")
			for _, col := range m.Columns {
				fmt.Fprintf(&sb, "- %s %s", col.Name, col.Type)
				if col.Comment != "" {
					sb.WriteString(": " + col.Comment)
				}
				sb.WriteString("\n")
			}
		}
		if m.RawSQL != "" {
			fmt.Fprintf(&sb, "```sql\n%s\n```", m.RawSQL)
		}
		return &tools.Result{Content: strings.TrimRight(sb.String(), "\n")}, nil
	}
	return nil, fmt.Errorf("unknown model %q", name)
}

func renderModelList(models []dbtModel) string {
	if len(models) == 0 {
		return "No models."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d models", len(models))
	for _, m := range models {
		sb.WriteString("\n- " + m.Name)
		if m.Description != "" {
			sb.WriteString(": " + m.Description)
		}
	}
	return sb.String()
}
