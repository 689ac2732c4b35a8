package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleBasePrompt serves the tool usage guide.
func HandleBasePrompt(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var sb strings.Builder

		sb.WriteString("# Efficient Tool Usage Guide\n\n")

		// --- Filter: Parameter Decision Table ---
		sb.WriteString("## Filter: Parameter Decision Table\n\n")
		sb.WriteString("| Goal | Parameter | Example |\n")
		sb.WriteString("|------|-----------|--------|\n")
		sb.WriteString("| Restrict a field to some values | `values` | `values: {\"country\": [\"DE\", \"AT\"]}` |\n")
		sb.WriteString("| Substring match on domain, organization and application | `text_search` | `text_search: \"github\"` |\n")
		sb.WriteString("| Count connections per value | `group_by` | `group_by: [\"country\"]` |\n")
		sb.WriteString("| Biggest groups first | `order_by` | `order_by: [{field: \"totalCount\", desc: true}]` |\n")
		sb.WriteString("| Start over | `clear_all` | `clear_all: true, text_search: \"\"` |\n")

		sb.WriteString("\n**Key rules**:\n")
		sb.WriteString("- Values of one field are ORed; different fields are ANDed\n")
		sb.WriteString("- `text_search` must match every free-text field it applies to\n")
		if len(cfg.Fields) > 0 {
			sb.WriteString(fmt.Sprintf("- Filterable fields: %s (see `netquery_fields` for the full list)\n", strings.Join(cfg.Fields, ", ")))
		}
		sb.WriteString("- Each call replaces what it names and keeps everything else\n")
		if cfg.DebounceMs > 0 {
			sb.WriteString(fmt.Sprintf("- `search: \"debounced\"` waits %dms for further changes before searching; only the last search publishes\n", cfg.DebounceMs))
		}

		// --- Results ---
		sb.WriteString("\n## Results (Token-Optimized)\n")
		if cfg.ResultLimit > 0 {
			sb.WriteString(fmt.Sprintf("- **Paged**: `netquery_results` returns %d rows by default; use `offset` to page\n", cfg.ResultLimit))
		}
		sb.WriteString("- **No chart by default**: set `include_chart: true` for the activity chart\n")
		sb.WriteString("- Use `jq` to keep only what you need: `jq: \".domain\"` with `deduplicate: true`\n")
		sb.WriteString("- `status: \"partial_failure\"` means some queries fell back to empty values; read `failures`\n")

		// --- Suggestions ---
		sb.WriteString("\n## Discover Values\n")
		sb.WriteString("1. `netquery_suggest(field: \"country\")` - values with counts under the current selection\n")
		sb.WriteString("2. `netquery_filter(values: {\"country\": [\"<value>\"]})` - select one\n")
		sb.WriteString("\nThe field's own selection never narrows its suggestions, so you can widen a selection from the list.\n")

		// --- Group charts ---
		sb.WriteString("\n## Group Charts\n")
		sb.WriteString("1. `netquery_filter(group_by: [\"domain\"])`\n")
		sb.WriteString("2. `netquery_results()` - each row has a `group_key`\n")
		sb.WriteString("3. `netquery_group_chart(keys: [\"<group_key>\"])` - activity over time for that group\n")
		sb.WriteString("\nCharts belong to the result they were listed in. After a new search, fetch fresh group keys.\n")

		// --- JQ Quick Reference ---
		sb.WriteString("\n## JQ Quick Reference\n")
		sb.WriteString("- `.domain` - One field per row\n")
		sb.WriteString("- `select(.totalCount > 10) | .country` - Filter grouped rows\n")
		sb.WriteString("- `{domain, remote_ip}` - Reshape rows\n")

		return &sdkmcp.GetPromptResult{
			Description: "Essential guide for efficient tool usage",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
