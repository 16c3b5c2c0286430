// Package mcp exposes recorded project knowledge to MCP clients.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/logging"
)

// instructions is sent to clients on initialize.
const instructions = `Read-only access to team-approved project knowledge.
Each project is named after its chat channel. Use list_projects first, then
get_project_knowledge for the ground truth file and list_project_events for
the approval history. lookup_person summarizes one user's roles and activity.`

// Server wraps the mcp-go MCPServer. Only tools are exposed.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates the MCP server. Handler panics are recovered and
// protocol-level errors are logged.
func NewServer(name, version string, logger *zap.Logger) *Server {
	logger = logger.Named("mcp")

	hooks := &server.Hooks{}
	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Warn("MCP request failed",
			zap.String("method", string(method)),
			zap.Any("id", id),
			zap.String("error", logging.SanitizeError(err)))
	})

	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithHooks(hooks),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates a stateless HTTP transport. Routing to
// /mcp is left to the caller's mux.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
