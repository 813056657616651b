// Package mcp exposes the review workflow as MCP tools so assistants can
// drive documents through the same rules as the REST API.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faisal-mohamed/rfdb-new/internal/auth"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
)

type Server struct {
	mcpServer *server.MCPServer
	workflow  *services.WorkflowService
}

func NewServer(wf *services.WorkflowService, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"RFP Review",
			version,
			server.WithToolCapabilities(true),
		),
		workflow: wf,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	actions := make([]string, 0, len(workflow.Actions()))
	for _, a := range workflow.Actions() {
		actions = append(actions, string(a))
	}

	s.mcpServer.AddTool(
		mcp.NewTool(
			"workflow_action",
			mcp.WithDescription("Run one review workflow action on a document"),
			mcp.WithString("action", mcp.Required(), mcp.Enum(actions...), mcp.Description("The workflow action")),
			mcp.WithString("documentId", mcp.Required(), mcp.Description("The ID of the document")),
			mcp.WithString("versionId", mcp.Description("Pins the version the action applies to")),
			mcp.WithString("jsonContent", mcp.Description("Full replacement tree for save_v1 and save_v2, as JSON")),
			mcp.WithArray("path", mcp.WithStringItems(), mcp.Description("Section names leading to the leaf to edit")),
			mcp.WithString("text", mcp.Description("New text for the leaf at path")),
		),
		s.handleWorkflowAction,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_document",
			mcp.WithDescription("Fetch a document with its V1 and V2 versions"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The ID of the document")),
		),
		s.handleGetDocument,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"workflow_stats",
			mcp.WithDescription("Count documents per workflow status"),
		),
		s.handleStats,
	)
}

func (s *Server) handleWorkflowAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("Unauthenticated"), nil
	}

	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: action"), nil
	}
	documentID, err := request.RequireString("documentId")
	if err != nil || documentID == "" {
		return mcp.NewToolResultError("Missing required parameter: documentId"), nil
	}

	cmd := services.Command{
		Action:     workflow.Action(action),
		DocumentID: documentID,
		VersionID:  request.GetString("versionId", ""),
		Path:       request.GetStringSlice("path", nil),
		Text:       request.GetString("text", ""),
	}
	if content := request.GetString("jsonContent", ""); content != "" {
		cmd.Content = json.RawMessage(content)
	}

	if err := caller.Authorize(cmd.Action); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.workflow.Execute(ctx, cmd, caller.ID)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return mcp.NewToolResultError("Unauthenticated"), nil
	}
	id, err := request.RequireString("id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}

	doc, err := s.workflow.GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return jsonResult(doc)
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, ok := auth.FromContext(ctx); !ok {
		return mcp.NewToolResultError("Unauthenticated"), nil
	}
	stats, err := s.workflow.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(describe(err)), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// Handler serves the MCP SSE transport under /mcp: the event stream at
// /mcp/sse and tool calls at /mcp/message.
func Handler(mcpServer *server.MCPServer) http.Handler {
	return server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
}
