package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// FieldsInput is the input for netquery_fields.
type FieldsInput struct{}

// FieldsOutput is the output for netquery_fields.
type FieldsOutput struct {
	Fields           []composer.FieldInfo `json:"fields,omitzero"`
	ConnectionFields []string             `json:"connection_fields,omitzero"`
	AllowedVerdicts  []VerdictInfo        `json:"allowed_verdicts,omitzero"`
	Aliases          []AliasInfo          `json:"aliases,omitzero"`
}

// VerdictInfo names a verdict code.
type VerdictInfo struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// AliasInfo describes a computed column of grouped results.
type AliasInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolFields lists the fields the search view can filter, group and order by.
func ToolFields(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FieldsInput) (*sdkmcp.CallToolResult, FieldsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FieldsInput) (*sdkmcp.CallToolResult, FieldsOutput, error) {
		output := FieldsOutput{
			Fields:           composer.Fields(),
			ConnectionFields: append([]string{}, composer.ConnectionFields...),
			AllowedVerdicts:  make([]VerdictInfo, len(netquery.AllowedVerdicts)),
			Aliases: []AliasInfo{
				{Name: composer.TotalCountAlias, Description: "Connections in the group"},
				{Name: composer.AllowedCountAlias, Description: "Connections in the group with an allowed verdict"},
			},
		}
		for i, v := range netquery.AllowedVerdicts {
			output.AllowedVerdicts[i] = VerdictInfo{Code: int(v), Name: v.String()}
		}
		return nil, output, nil
	}
}
