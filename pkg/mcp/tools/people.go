package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/services"
)

type personResult struct {
	UserID   string                 `json:"user_id"`
	Projects []services.ProjectRole `json:"projects"`
	Activity []services.Activity    `json:"activity"`
}

const personActivityLimit = 10

// RegisterPeopleTool adds lookup_person.
func RegisterPeopleTool(s *server.MCPServer, people services.PeopleService, logger *zap.Logger) {
	tool := mcp.NewTool(
		"lookup_person",
		mcp.WithDescription("Returns the projects a chat user appears in, their role in each and their recent approved activity."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Chat user id, e.g. U0123ABCD")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		roles, err := people.Projects(ctx, userID)
		if err != nil {
			return toolError(logger, "lookup_person", err), nil
		}
		activity, err := people.Activity(ctx, userID, personActivityLimit)
		if err != nil {
			return toolError(logger, "lookup_person", err), nil
		}
		if roles == nil {
			roles = []services.ProjectRole{}
		}
		if activity == nil {
			activity = []services.Activity{}
		}
		return jsonResult(personResult{UserID: userID, Projects: roles, Activity: activity})
	})
}
