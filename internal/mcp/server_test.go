package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/internal/auth"
	"github.com/faisal-mohamed/rfdb-new/internal/lock"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

type noopRenderer struct{}

func (noopRenderer) Render(context.Context, services.RenderRequest) (string, error) {
	return "generated/documents/out.html", nil
}

func (noopRenderer) Discard(context.Context, string) error { return nil }

func setup(t *testing.T) (*Server, *models.Document) {
	t.Helper()
	store := repository.NewMemoryStore()
	wf := services.NewWorkflowService(store, store, services.NewMockExtractionClient(0), noopRenderer{}, lock.NewLocalLocker(), logging.Discard())
	doc, err := wf.RegisterDocument(context.Background(), services.RegisterInput{
		FileName:     "harbor.pdf",
		Content:      []byte("%PDF"),
		CustomerName: "Port Authority",
	}, "seed")
	require.NoError(t, err)
	return NewServer(wf, "test"), doc
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func as(role auth.Role) context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{ID: "assistant", Role: role})
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestWorkflowActionTool(t *testing.T) {
	s, doc := setup(t)

	res, err := s.handleWorkflowAction(as(auth.RoleEditor), call(map[string]any{
		"action":     "process_v1",
		"documentId": doc.ID,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var result services.Result
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &result))
	assert.Equal(t, models.StatusV1Ready, result.Document.WorkflowStatus)

	res, err = s.handleWorkflowAction(as(auth.RoleEditor), call(map[string]any{
		"action":     "save_v1",
		"documentId": doc.ID,
		"path":       []any{"Budget", "Payment Terms"},
		"text":       "Net 45",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "Net 45")

	res, err = s.handleWorkflowAction(as(auth.RoleEditor), call(map[string]any{
		"action":      "save_v1",
		"documentId":  doc.ID,
		"jsonContent": `{"Budget": 3}`,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "validation failed: Budget must be an object", text(t, res))
}

func TestWorkflowActionTool_Rejections(t *testing.T) {
	s, doc := setup(t)

	tests := []struct {
		name string
		ctx  context.Context
		args map[string]any
		want string
	}{
		{"unauthenticated", context.Background(), map[string]any{"action": "process_v1", "documentId": doc.ID}, "Unauthenticated"},
		{"missing action", as(auth.RoleAdmin), map[string]any{"documentId": doc.ID}, "Missing required parameter: action"},
		{"missing document", as(auth.RoleAdmin), map[string]any{"action": "approve"}, "Missing required parameter: documentId"},
		{"viewer", as(auth.RoleViewer), map[string]any{"action": "process_v1", "documentId": doc.ID}, "role VIEWER may not process_v1"},
		{"wrong status", as(auth.RoleAdmin), map[string]any{"action": "approve", "documentId": doc.ID},
			"approve requires document status V2_COMPLETED, current status is UPLOADED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleWorkflowAction(tt.ctx, call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.want, text(t, res))
		})
	}
}

func TestReadTools(t *testing.T) {
	s, doc := setup(t)

	res, err := s.handleGetDocument(as(auth.RoleViewer), call(map[string]any{"id": doc.ID}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	var full models.DocumentWithVersions
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &full))
	assert.Equal(t, "harbor.pdf", full.Document.FileName)
	assert.Nil(t, full.V1)

	res, err = s.handleGetDocument(as(auth.RoleViewer), call(map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleStats(as(auth.RoleViewer), call(nil))
	require.NoError(t, err)
	var stats models.WorkflowStats
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &stats))
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.StatusBreakdown[models.StatusUploaded])
}
