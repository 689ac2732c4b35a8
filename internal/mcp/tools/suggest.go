package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/suggest"
)

// SuggestInput is the input for netquery_suggest.
type SuggestInput struct {
	Field string `json:"field" jsonschema:"Field to suggest values for, e.g. country, domain, as_owner or path"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max suggestions to return (default: 50, max: 500). Selected values are always returned"`
}

// SuggestOutput is the output for netquery_suggest.
type SuggestOutput struct {
	Field       string               `json:"field"`
	DisplayName string               `json:"display_name"`
	Suggestions []suggest.Suggestion `json:"suggestions,omitzero"`
	Total       int                  `json:"total"`
	Truncated   bool                 `json:"truncated,omitempty"`
}

// ToolSuggest ranks candidate values for a field under the current
// selection. Values already selected for the field come first.
func ToolSuggest(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SuggestInput) (*sdkmcp.CallToolResult, SuggestOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SuggestInput) (*sdkmcp.CallToolResult, SuggestOutput, error) {
		if input.Field == "" {
			return nil, SuggestOutput{}, ErrInvalidInput("field is required")
		}

		suggestions, err := d.Viewer.Suggest(ctx, input.Field)
		if err != nil {
			return nil, SuggestOutput{}, WrapNetqueryError(err)
		}

		limit := d.resultLimit(input.Limit)
		selected := 0
		for _, s := range suggestions {
			if s.Selected {
				selected++
			}
		}
		keep := min(len(suggestions), max(limit, selected))

		return nil, SuggestOutput{
			Field:       input.Field,
			DisplayName: composer.DisplayName(input.Field),
			Suggestions: suggestions[:keep],
			Total:       len(suggestions),
			Truncated:   keep < len(suggestions),
		}, nil
	}
}
