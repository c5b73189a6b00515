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

	"github.com/datachat-io/datachat/pkg/chart"
	"github.com/datachat-io/datachat/pkg/datalake"
	"github.com/datachat-io/datachat/pkg/tools"
)

// PlotWidgetTool runs a query and turns its rows into a chart widget.
// Displaying the widget ends the turn; the text answer only confirms it.
type PlotWidgetTool struct {
	lake     datalake.Datalake
	renderer chart.Renderer
}

var _ tools.Tool = (*PlotWidgetTool)(nil)

// NewPlotWidgetTool creates the PLOT_WIDGET tool. A nil renderer attaches
// the chart spec JSON instead of a rendered image.
func NewPlotWidgetTool(lake datalake.Datalake, renderer chart.Renderer) *PlotWidgetTool {
	return &PlotWidgetTool{lake: lake, renderer: renderer}
}

func (t *PlotWidgetTool) Name() string { return "PLOT_WIDGET" }

func (t *PlotWidgetTool) Description() string {
	return "Display a chart of a query's results to the user."
}

func (t *PlotWidgetTool) InputSchema() *tools.Schema {
	return tools.NewObjectSchema(map[string]*tools.Schema{
		"query": tools.NewStringSchema("the SQL statement producing the data to plot"),
		"type": tools.NewStringSchema("chart type").
			WithEnum("bar", "line", "area", "pie", "doughnut"),
		"title":        tools.NewStringSchema("chart title"),
		"label_column": tools.NewStringSchema("column holding the point labels"),
		"value_column": tools.NewStringSchema("column holding the point values"),
		"transform": tools.NewStringSchema("how to reshape the rows").
			WithEnum("identity", "label_value", "melt").
			WithDefault("label_value"),
	}, []string{"query", "type", "label_column"})
}

func (t *PlotWidgetTool) Execute(ctx context.Context, args map[string]any) (*tools.Result, error) {
	sqlText := tools.String(args, "query")
	if sqlText == "" {
		return nil, fmt.Errorf("query is empty")
	}
	res, err := t.lake.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	spec, err := chart.BuildSpec(
		chart.Kind(tools.String(args, "type")),
		tools.String(args, "title"),
		res.Rows,
		tools.String(args, "label_column"),
		tools.String(args, "value_column"),
		chart.Transform(tools.String(args, "transform")),
	)
	if err != nil {
		return nil, err
	}
	var payload []byte
	if t.renderer != nil {
		payload, err = t.renderer.Render(spec)
	} else {
		payload, err = spec.JSON()
	}
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Content:  "Widget displayed to the user.",
		Image:    payload,
		StopLoop: true,
	}, nil
}
