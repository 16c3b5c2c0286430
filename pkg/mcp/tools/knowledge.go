package tools

import (
	"context"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/repositories"
)

// KnowledgeToolDeps holds the stores the knowledge tools read.
type KnowledgeToolDeps struct {
	Knowledge repositories.KnowledgeRepository
	Events    repositories.EventRepository
	Logger    *zap.Logger
}

type projectListResult struct {
	Projects []string `json:"projects"`
}

type knowledgeResult struct {
	Project string   `json:"project"`
	Facts   []string `json:"facts"`
}

type eventsResult struct {
	Project string          `json:"project"`
	Total   int             `json:"total"`
	Events  []*models.Event `json:"events"`
}

const defaultEventLimit = 50

// RegisterKnowledgeTools adds list_projects, get_project_knowledge and
// list_project_events.
func RegisterKnowledgeTools(s *server.MCPServer, deps *KnowledgeToolDeps) {
	registerListProjects(s, deps)
	registerGetProjectKnowledge(s, deps)
	registerListProjectEvents(s, deps)
}

func registerListProjects(s *server.MCPServer, deps *KnowledgeToolDeps) {
	tool := mcp.NewTool(
		"list_projects",
		mcp.WithDescription("Lists every project that has knowledge or approved events."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fromKnowledge, err := deps.Knowledge.Projects(ctx)
		if err != nil {
			return toolError(deps.Logger, "list_projects", err), nil
		}
		fromEvents, err := deps.Events.Projects(ctx)
		if err != nil {
			return toolError(deps.Logger, "list_projects", err), nil
		}
		names := append(fromKnowledge, fromEvents...)
		slices.Sort(names)
		return jsonResult(projectListResult{Projects: slices.Compact(names)})
	})
}

func registerGetProjectKnowledge(s *server.MCPServer, deps *KnowledgeToolDeps) {
	tool := mcp.NewTool(
		"get_project_knowledge",
		mcp.WithDescription("Returns the approved ground truth facts of a project, one per line."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name (the channel name)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := req.RequireString("project")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := models.ValidateProjectName(project); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := deps.Knowledge.Read(ctx, project)
		if err != nil {
			return toolError(deps.Logger, "get_project_knowledge", err), nil
		}
		return jsonResult(knowledgeResult{Project: project, Facts: splitFacts(text)})
	})
}

func registerListProjectEvents(s *server.MCPServer, deps *KnowledgeToolDeps) {
	tool := mcp.NewTool(
		"list_project_events",
		mcp.WithDescription("Returns the most recent approved events of a project, oldest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name (the channel name)")),
		mcp.WithString("event_type", mcp.Description("Only return UPDATE or QUESTION events"), mcp.Enum("UPDATE", "QUESTION")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events to return (default 50)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := req.RequireString("project")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := models.ValidateProjectName(project); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind := models.EventKind(getOptionalString(req, "event_type"))
		if kind != "" && !kind.IsValid() {
			return mcp.NewToolResultError("event_type must be UPDATE or QUESTION"), nil
		}
		limit := defaultEventLimit
		if v, ok := getOptionalFloat(req, "limit"); ok && v >= 1 {
			limit = int(v)
		}

		events, err := deps.Events.List(ctx, project)
		if err != nil {
			return toolError(deps.Logger, "list_project_events", err), nil
		}
		if kind != "" {
			events = slices.DeleteFunc(events, func(e *models.Event) bool { return e.EventType != kind })
		}
		total := len(events)
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		if events == nil {
			events = []*models.Event{}
		}
		return jsonResult(eventsResult{Project: project, Total: total, Events: events})
	})
}
