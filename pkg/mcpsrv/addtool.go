package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/mcp/tools"
)

// AddTool registers a tool on srv after checking its output type, the same
// way WithTool and WithDepsTool do. Use it for tools added to
// [Server.MCPServer] directly.
//
// It panics at registration when Out would produce structured content the
// SDK rejects: a slice field without omitzero (nil encodes as null), or a
// field whose JSON is written by a custom marshaler such as
// netquery.Query, netquery.Select, netquery.In or netquery.Like. Store those
// as any, converted with ToAny.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}

// ToAny converts v to the untyped JSON form accepted in tool outputs.
func ToAny(v any) (any, error) {
	return tools.ToAny(v)
}
