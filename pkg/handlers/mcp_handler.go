package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/mcp"
	"github.com/humanand/humanand/pkg/middleware"
)

// MCPHandler handles MCP protocol requests over HTTP.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	logger     *zap.Logger
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		logger:     logger,
	}
}

// RegisterRoutes registers the MCP endpoint at /mcp. Tool calls are logged at DEBUG.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", h.requirePOST(middleware.MCPRequestLogger(h.logger)(h.httpServer)))
}

// requirePOST rejects anything but POST; the stateless transport has no
// GET stream or DELETE session to serve.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			if err := ErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "MCP requests must use POST"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
