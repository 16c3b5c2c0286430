package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	// Pending is the number of proposals awaiting approval, when known.
	Pending *int `json:"pending,omitempty"`
}

// PendingCounts reports the size of the pending registry.
type PendingCounts interface {
	Count() (updates, nudges int)
}

// RegisterHealthTool adds a health check tool to the MCP server.
// pending may be nil.
func RegisterHealthTool(s *server.MCPServer, version string, pending PendingCounts) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{Status: "ok", Version: version}
		if pending != nil {
			updates, nudges := pending.Count()
			n := updates + nudges
			res.Pending = &n
		}
		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
