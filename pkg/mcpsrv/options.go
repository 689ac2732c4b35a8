package mcpsrv

import (
	"context"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/config"
)

// serverConfig holds configuration built from options.
type serverConfig struct {
	config *config.Config

	logLevel string
	logFile  string

	disableBuiltinTools   bool
	disableBuiltinPrompts bool

	// Registration callbacks keep the generic In/Out types of each tool.
	toolRegistrations     []func(*mcp.Server)
	promptRegistrations   []func(*mcp.Server)
	resourceRegistrations []func(*mcp.Server)

	// Run after Deps exist.
	deferredToolRegistrations []func(*mcp.Server, *Deps)
}

// Option configures the server.
type Option func(*serverConfig)

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) {
		cfg.logLevel = level
	}
}

// WithLogFile sets the log file path.
// If empty, logs are written to stderr only.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) {
		cfg.logFile = path
	}
}

// WithDebounce sets the quiet period between the last selection change
// and the search it triggers.
func WithDebounce(d time.Duration) Option {
	return func(cfg *serverConfig) {
		cfg.config.SearchDebounce = d
	}
}

// WithRequestTimeout bounds every search cycle and group chart fetch.
// Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *serverConfig) {
		cfg.config.StoreRequestTimeout = d
	}
}

// WithoutBuiltinTools disables all builtin netquery tools and resources.
// Use this if you want to register only your own tools.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinTools = true
	}
}

// WithoutBuiltinPrompts disables all builtin netquery prompts.
// Use this if you want to register only your own prompts.
func WithoutBuiltinPrompts() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinPrompts = true
	}
}

// WithTool registers a custom tool that needs nothing from the search view.
// The handler follows the MCP SDK signature; In is decoded from the call
// arguments and Out is encoded as structured content.
//
//	type VerdictNameInput struct {
//	    Code int `json:"code"`
//	}
//
//	type VerdictNameOutput struct {
//	    Name string `json:"name"`
//	}
//
//	mcpsrv.WithTool(
//	    &mcp.Tool{Name: "verdict_name", Description: "Name a verdict code"},
//	    func(ctx context.Context, req *mcp.CallToolRequest, in VerdictNameInput) (*mcp.CallToolResult, VerdictNameOutput, error) {
//	        return nil, VerdictNameOutput{Name: netquery.Verdict(in.Code).String()}, nil
//	    },
//	)
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		// Store a callback that calls AddTool with output zero-value check
		cfg.toolRegistrations = append(cfg.toolRegistrations, func(srv *mcp.Server) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool registers a custom tool that has access to Deps.
// Use this when your tool needs access to the search view, the store or other
// infrastructure.
//
// The builder receives Deps and returns a handler function.
//
// Example:
//
//	mcpsrv.WithDepsTool(
//	    &mcp.Tool{Name: "blocked_count", Description: "Count blocked connections"},
//	    func(d *mcpsrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, input MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, input MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	            q := &netquery.Query{Select: []netquery.Select{netquery.CountAll("count")}}
//	            rows, err := d.Store.Query(ctx, q)
//	            if err != nil || len(rows) == 0 {
//	                return nil, MyOutput{}, err
//	            }
//	            n, _ := rows[0].Int("count")
//	            return nil, MyOutput{Count: n}, nil
//	        }
//	    },
//	)
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.deferredToolRegistrations = append(cfg.deferredToolRegistrations, func(srv *mcp.Server, deps *Deps) {
			handler := builder(deps)
			AddTool(srv, tool, handler)
		})
	}
}

// WithPrompt registers a custom prompt with the server.
//
//	mcpsrv.WithPrompt(
//	    &mcp.Prompt{Name: "blocked_today", Description: "Review blocked connections"},
//	    func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
//	        return &mcp.GetPromptResult{
//	            Messages: []*mcp.PromptMessage{{
//	                Role:    "user",
//	                Content: &mcp.TextContent{Text: `Call netquery_filter(values={"verdict": [3]}) and summarize.`},
//	            }},
//	        }, nil
//	    },
//	)
func WithPrompt(prompt *mcp.Prompt, handler func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.promptRegistrations = append(cfg.promptRegistrations, func(srv *mcp.Server) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResourceTemplate registers a custom resource template, for example
// one exposing saved selections by name:
//
//	mcpsrv.WithResourceTemplate(
//	    &mcp.ResourceTemplate{URITemplate: "netquery://saved/{name}", Name: "saved-selection"},
//	    func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
//	        text, err := loadSaved(req.Params.URI)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return &mcp.ReadResourceResult{
//	            Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: "application/json", Text: text}},
//	        }, nil
//	    },
//	)
func WithResourceTemplate(template *mcp.ResourceTemplate, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.resourceRegistrations = append(cfg.resourceRegistrations, func(srv *mcp.Server) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
