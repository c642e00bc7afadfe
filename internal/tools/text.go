package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// textTool adapts run to a handler that takes one required string argument
// and answers with text. Failures become tool errors, never protocol errors.
func textTool(arg string, run func(ctx context.Context, value string) (string, error)) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		value, err := req.RequireString(arg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := run(ctx, value)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
