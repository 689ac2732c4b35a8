package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/aggregate"
)

// GroupChartInput is the input for netquery_group_chart.
type GroupChartInput struct {
	Keys []string `json:"keys,omitempty" jsonschema:"group_key values from netquery_results. One key fetches that chart; several are fetched concurrently. Omit to list the chart state of every group without fetching"`
}

// GroupChartOutput is the output for netquery_group_chart.
type GroupChartOutput struct {
	Generation uint64                 `json:"generation"`
	Charts     []aggregate.GroupChart `json:"charts,omitzero"`
	Hint       string                 `json:"hint,omitempty"`
}

// ToolGroupChart loads the per-group activity charts of a grouped result.
// Charts are fetched on first request and kept until the next search
// publishes a new result.
func ToolGroupChart(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GroupChartInput) (*sdkmcp.CallToolResult, GroupChartOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GroupChartInput) (*sdkmcp.CallToolResult, GroupChartOutput, error) {
		var charts []aggregate.GroupChart

		switch len(input.Keys) {
		case 0:
			charts = d.Viewer.GroupCharts()
		case 1:
			chart, err := d.Viewer.GroupChart(ctx, input.Keys[0])
			if err != nil {
				return nil, GroupChartOutput{}, WrapNetqueryError(err)
			}
			charts = []aggregate.GroupChart{chart}
		default:
			charts = d.Viewer.PrefetchGroupCharts(ctx, input.Keys)
			for i := range charts {
				if charts[i].Key == "" {
					charts[i].Key = input.Keys[i]
					charts[i].Error = "not part of the current result"
				}
			}
		}

		output := GroupChartOutput{
			Generation: d.Viewer.Snapshot().Seq,
			Charts:     charts,
		}
		if len(charts) == 0 {
			output.Hint = "The current result has no groups. Set group_by with netquery_filter first."
		}
		return nil, output, nil
	}
}
