package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/apod-cache/internal/cache"
)

// CacheAdmin is the part of cache.Cache the maintenance tools need.
type CacheAdmin interface {
	Stats() cache.Report
	Clear(prefix string) int
}

// StatsHandler returns the MCP tool handler for the "cache-stats" tool.
func StatsHandler(c CacheAdmin) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.MarshalIndent(c.Stats(), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

// ClearHandler returns the MCP tool handler for the "cache-clear" tool. An
// empty prefix clears everything.
func ClearHandler(c CacheAdmin) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prefix := req.GetString("prefix", "")
		n := c.Clear(prefix)
		if prefix == "" {
			return mcp.NewToolResultText(fmt.Sprintf("Cleared %d entries.", n)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %d entries with prefix %q.", n, prefix)), nil
	}
}
