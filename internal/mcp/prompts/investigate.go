package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleInvestigateConnections implements the connection investigation
// workflow.
func HandleInvestigateConnections(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments

		application := ""
		term := ""
		if args != nil {
			if v, ok := args["application"]; ok {
				application = v
			}
			if v, ok := args["search"]; ok {
				term = v
			}
		}

		var sb strings.Builder

		// 1. Role/Persona
		sb.WriteString("# Investigate Network Connections\n\n")
		sb.WriteString("You are a network security analyst reviewing the connections recorded on this machine. ")
		sb.WriteString("Your goal is to explain where traffic goes, which applications produce it and what was blocked.\n\n")

		// 2. Workflow
		sb.WriteString("## Workflow Steps\n\n")
		sb.WriteString("1. **Scope** - Narrow the view to what you are asked about\n")
		sb.WriteString("2. **Group** - Group by country, then by organization, to see where traffic goes\n")
		sb.WriteString("   - Compare `totalCount` with `countAllowed`: the difference was blocked or dropped\n")
		sb.WriteString("3. **Drill down** - Select a group's value and group by domain\n")
		sb.WriteString("4. **Timeline** - Load group charts only for groups that stand out\n\n")

		sb.WriteString("## Suggested Tools\n\n")
		sb.WriteString("```\n")
		sb.WriteString("# Step 1: Scope\n")
		var parts []string
		if application != "" {
			parts = append(parts, fmt.Sprintf("values={\"path\": [%q]}", application))
		}
		if term != "" {
			parts = append(parts, fmt.Sprintf("text_search=%q", term))
		}
		if len(parts) > 0 {
			sb.WriteString(fmt.Sprintf("netquery_filter(%s)\n", strings.Join(parts, ", ")))
		} else {
			sb.WriteString("netquery_suggest(field=\"path\")  # pick the applications to look at\n")
		}
		sb.WriteString("\n")
		sb.WriteString("# Step 2: Group\n")
		sb.WriteString("netquery_filter(group_by=[\"country\"], order_by=[{field: \"totalCount\", desc: true}])\n")
		sb.WriteString("netquery_results()\n")
		sb.WriteString("\n")
		sb.WriteString("# Step 3: Drill down\n")
		sb.WriteString("netquery_filter(values={\"country\": [\"<country>\"]}, group_by=[\"domain\"])\n")
		sb.WriteString("\n")
		sb.WriteString("# Step 4: Timeline\n")
		sb.WriteString("netquery_group_chart(keys=[\"<group_key>\"])\n")
		sb.WriteString("```\n\n")

		// 3. Output Format
		sb.WriteString("## Expected Output Format\n\n")
		sb.WriteString("1. **Overview**: total connections and the share that was allowed\n")
		sb.WriteString("2. **Destinations**: top countries and organizations with counts\n")
		sb.WriteString("3. **Findings**: unexpected destinations, blocked traffic, bursts in the charts\n\n")

		// 4. Constraints
		sb.WriteString("## Constraints\n\n")
		sb.WriteString("- Do NOT page through ungrouped rows to count them; group instead\n")
		sb.WriteString("- Do NOT load every group chart; pick the few that matter\n\n")

		// 5. Error Recovery
		sb.WriteString("## If Things Go Wrong\n\n")
		sb.WriteString("- **Empty result?** Check the selection in the `netquery_filter` output and clear fields one by one\n")
		sb.WriteString("- **partial_failure?** Read `failures` and `notices` in `netquery_results`, then retry with `refresh: true`\n")
		sb.WriteString("- **NOT_FOUND for a group chart?** The result changed; call `netquery_results` for current group keys\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for investigating recorded network connections",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
