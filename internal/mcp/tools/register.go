package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Tool 1: netquery_fields
	AddTool(srv, &sdkmcp.Tool{
		Name:        "netquery_fields",
		Description: "List the connection fields the search view can filter, free-text search, group and order by, plus the verdicts counted as allowed and the computed columns of grouped results (totalCount, countAllowed).",
	}, ToolFields(d))

	// Tool 2: netquery_filter
	AddTool(srv, &sdkmcp.Tool{
		Name:        "netquery_filter",
		Description: "Update the search view: select values per field (values of one field are ORed, fields are ANDed), set the free-text term, group or order results. Runs the search and returns {seq, status, total_count, row_count, selection, query}. Use netquery_suggest to discover values and netquery_results to read rows.",
	}, ToolFilter(d))

	// Tool 3: netquery_results
	AddTool(srv, &sdkmcp.Tool{
		Name:        "netquery_results",
		Description: "Read the last published search result: rows (paged), total_count, optional chart, failures and recent error notices. Grouped rows carry a group_key for netquery_group_chart. Set jq to project each row, e.g. '.domain'.",
	}, ToolResults(d))

	// Tool 4: netquery_suggest
	AddTool(srv, &sdkmcp.Tool{
		Name:        "netquery_suggest",
		Description: "Suggest values for a field with their connection counts under the current selection, ignoring the field's own selected values. Selected values come first, then the rest, each ordered by count.",
	}, ToolSuggest(d))

	// Tool 5: netquery_group_chart
	AddTool(srv, &sdkmcp.Tool{
		Name:        "netquery_group_chart",
		Description: "Load the activity chart of groups in a grouped result by group_key. Charts are fetched on first request; a failed fetch is reported in the chart's state and retried on the next request. Omit keys to list every group's chart state.",
	}, ToolGroupChart(d))
}
