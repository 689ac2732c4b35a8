package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/mcp/tools"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Resource URI scheme: netquery://
// Supported URIs:
//   netquery://schema/selection
//   netquery://schema/query
//   netquery://query/current
//   netquery://notices/recent

const (
	uriSelectionSchema = "netquery://schema/selection"
	uriQuerySchema     = "netquery://schema/query"
	uriCurrentQuery    = "netquery://query/current"
	uriRecentNotices   = "netquery://notices/recent"
)

// registerResources registers resources and their handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriSelectionSchema,
		Name:        "Selection Schema",
		Description: "JSON Schema of the search view selection (values, text_search, group_by, order_by). Also the format of selection files for the CLI.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceSelectionSchema)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriQuerySchema,
		Name:        "Query Schema",
		Description: "JSON Schema of the query document sent to the connection store.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.3,
		},
	}, s.handleResourceQuerySchema)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriCurrentQuery,
		Name:        "Current Query",
		Description: "The store query the current selection composes to. Tools already return it after each filter change; only fetch to inspect it on its own.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.4,
		},
	}, s.handleResourceCurrentQuery)

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         uriRecentNotices,
		Name:        "Recent Notices",
		Description: "Recent error notifications raised by failed searches and chart loads, oldest first.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant", "user"},
			Priority: 0.4,
		},
	}, s.handleResourceRecentNotices)
}

// Resource handlers

func (s *Server) handleResourceSelectionSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, SelectionSchema())
}

func (s *Server) handleResourceQuerySchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	return toResourceResult(req.Params.URI, json.RawMessage(netquery.QuerySchema()))
}

func (s *Server) handleResourceCurrentQuery(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	q := s.deps.Viewer.Query()
	return toResourceResult(req.Params.URI, &q)
}

func (s *Server) handleResourceRecentNotices(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	if s.deps.Notices == nil {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}
	return toResourceResult(req.Params.URI, map[string]any{
		"notices": s.deps.Notices.Recent(),
	})
}

// Helper functions

// SelectionSchema reflects the JSON Schema of composer.Selection.
func SelectionSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&composer.Selection{})
	schema.Title = "Selection"
	return schema
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
