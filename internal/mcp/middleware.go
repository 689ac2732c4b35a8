package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/netquery-mcp/internal/metrics"
)

// LoggingMiddleware returns middleware that logs incoming method calls and
// counts tool invocations. Tool calls carry the tool name so slow or
// failing searches can be told apart in the log.
func LoggingMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()

			result, err := next(ctx, method, req)

			attrs := []slog.Attr{
				slog.String("method", method),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}

			tool := toolName(req)
			if tool != "" {
				attrs = append(attrs, slog.String("tool", tool))
				metrics.ToolCalls.WithLabelValues(tool, toolOutcome(result, err)).Inc()
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				slog.LogAttrs(ctx, slog.LevelError, "method call failed", attrs...)
			} else {
				slog.LogAttrs(ctx, slog.LevelInfo, "method call completed", attrs...)
			}

			return result, err
		}
	}
}

func toolName(req sdkmcp.Request) string {
	call, ok := req.(*sdkmcp.CallToolRequest)
	if !ok || call.Params == nil {
		return ""
	}
	return call.Params.Name
}

func toolOutcome(result sdkmcp.Result, err error) string {
	if err != nil {
		return "failed"
	}
	if r, ok := result.(*sdkmcp.CallToolResult); ok && r.IsError {
		return "tool_error"
	}
	return "ok"
}
