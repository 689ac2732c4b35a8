package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	// Prompt 1: Tool usage guide
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "netquery_guide",
		Description: "RECOMMENDED: How to filter, group and read connection search results without wasting context.",
	}, HandleBasePrompt(cfg))

	// Prompt 2: Investigate connections
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "investigate_connections",
		Description: "RECOMMENDED: Investigate where network traffic goes and what was blocked. Start here - provides workflow guidance for the search view tools.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "application",
				Description: "Application path to focus on (e.g., '/usr/bin/firefox')",
				Required:    false,
			},
			{
				Name:        "search",
				Description: "Free-text term matched against domain, organization and application",
				Required:    false,
			},
		},
	}, HandleInvestigateConnections(cfg))
}
