package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faisal-mohamed/rfdb-new/internal/auth"
	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/lock"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/render"
	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/storage"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	logger := logging.Discard()
	store := repository.NewMemoryStore()

	objects, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	renderer, err := render.NewService(render.FormatHTML, objects, "generated/documents", time.Second, nil)
	require.NoError(t, err)

	wf := services.NewWorkflowService(store, store, services.NewMockExtractionClient(0), renderer, lock.NewLocalLocker(), logger)
	a, err := auth.New(context.Background(), config.AuthConfig{Mode: "dev"}, logger)
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		ServiceName: "rfdb-test",
		Auth:        a,
		Server:      NewServer(wf, objects, logger),
		Health:      NewHandler("test", map[string]Pinger{"database": store}),
		CORSOrigins: []string{"http://localhost:3000"},
		Issuer:      "https://issuer.example.com",
		ClientID:    "swagger",
		Logger:      logger,
	})
}

func do(t *testing.T, e *echo.Echo, req *http.Request, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set(auth.HeaderUserID, "user-"+string(role))
	req.Header.Set(auth.HeaderUserRole, string(role))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, e *echo.Echo, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "city-hall.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 city hall"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("customerName", "City of Springfield"))
	require.NoError(t, w.WriteField("tags", "civic, portal ,"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return do(t, e, req, role)
}

func action(t *testing.T, e *echo.Echo, role auth.Role, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow", bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return do(t, e, req, role)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	e := newTestRouter(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["database"])
}

func TestOpenAPISpec(t *testing.T) {
	e := newTestRouter(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://issuer.example.com/.well-known/openid-configuration")
	assert.NotContains(t, rec.Body.String(), "{oidcIssuer}")
}

func TestCreateDocument(t *testing.T) {
	e := newTestRouter(t)

	rec := upload(t, e, auth.RoleEditor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[models.Document](t, rec)
	assert.Equal(t, models.StatusUploaded, doc.WorkflowStatus)
	assert.Equal(t, "city-hall.pdf", doc.FileName)
	assert.Equal(t, "pdf", doc.FileType)
	assert.Equal(t, []string{"civic", "portal"}, doc.Tags)
	assert.Equal(t, "user-EDITOR", doc.UploadedBy)

	rec = upload(t, e, auth.RoleApprover)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
}

func TestWorkflowEndToEnd(t *testing.T) {
	e := newTestRouter(t)
	doc := decode[models.Document](t, upload(t, e, auth.RoleEditor))
	id := doc.ID

	step := func(role auth.Role, act string, extra map[string]any) *httptest.ResponseRecorder {
		body := map[string]any{"action": act, "documentId": id}
		for k, v := range extra {
			body[k] = v
		}
		return action(t, e, role, body)
	}
	mustStep := func(role auth.Role, act string, extra map[string]any) services.Result {
		rec := step(role, act, extra)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", act, rec.Body.String())
		return decode[services.Result](t, rec)
	}

	res := mustStep(auth.RoleEditor, "process_v1", nil)
	assert.Equal(t, models.StatusV1Ready, res.Document.WorkflowStatus)
	require.NotNil(t, res.Version)

	rec := step(auth.RoleEditor, "save_v1", map[string]any{"jsonContent": map[string]any{"Budget": []int{1}}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decode[models.ProblemDetails](t, rec)
	assert.Equal(t, []string{"Budget must be an object"}, problem.Errors)

	res = mustStep(auth.RoleEditor, "save_v1", map[string]any{
		"path": []string{"Budget", "Estimated Range"},
		"text": "$80,000",
	})
	assert.Equal(t, models.StatusV1Ready, res.Document.WorkflowStatus)

	mustStep(auth.RoleEditor, "complete_v1", nil)
	mustStep(auth.RoleEditor, "process_v2", nil)
	mustStep(auth.RoleEditor, "complete_v2", nil)

	rec = step(auth.RoleEditor, "approve", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	res = mustStep(auth.RoleApprover, "approve", nil)
	assert.Equal(t, models.StatusApproved, res.Document.WorkflowStatus)

	res = mustStep(auth.RoleApprover, "generate_document", nil)
	assert.Equal(t, models.StatusCompleted, res.Document.WorkflowStatus)
	require.NotNil(t, res.Version.GeneratedDocumentPath)
	assert.Regexp(t, `^generated/documents/`+id+`_[0-9a-f-]{36}_\d+\.html$`, *res.Version.GeneratedDocumentPath)

	rec = do(t, e, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id+"/download", nil), auth.RoleViewer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="RFP-Summary---city-hallpdf.html"`)
	assert.Contains(t, rec.Body.String(), "Customer: City of Springfield")
	assert.Contains(t, rec.Body.String(), "$80,000")

	rec = do(t, e, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, nil), auth.RoleViewer)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[models.DocumentWithVersions](t, rec)
	require.NotNil(t, full.V1)
	require.NotNil(t, full.V2)
	assert.Equal(t, models.VersionApproved, full.V2.Status)
	assert.False(t, full.V1.Content.IsEmpty())

	rec = do(t, e, httptest.NewRequest(http.MethodGet, "/api/v1/workflow/stats", nil), auth.RoleViewer)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.WorkflowStats](t, rec)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 1, stats.StatusBreakdown[models.StatusCompleted])
}

func TestWorkflowErrors(t *testing.T) {
	e := newTestRouter(t)
	doc := decode[models.Document](t, upload(t, e, auth.RoleEditor))

	rec := action(t, e, auth.RoleAdmin, map[string]any{"action": "approve", "documentId": doc.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[models.ProblemDetails](t, rec)
	assert.Equal(t, "approve requires document status V2_COMPLETED, current status is UPLOADED", problem.Detail)
	assert.Equal(t, "/api/v1/workflow", problem.Instance)

	rec = action(t, e, auth.RoleAdmin, map[string]any{"action": "publish", "documentId": doc.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = action(t, e, auth.RoleAdmin, map[string]any{"action": "process_v1", "documentId": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = action(t, e, auth.RoleAdmin, map[string]any{"action": "process_v1", "documentId": "6f1c1f8e-0d59-4c1e-9d0e-3c8b2a7c9f10"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = action(t, e, auth.RoleViewer, map[string]any{"action": "process_v1", "documentId": doc.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, httptest.NewRequest(http.MethodGet, "/api/v1/documents/nope", nil), auth.RoleViewer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/download", nil), auth.RoleViewer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowBodyLimit(t *testing.T) {
	e := newTestRouter(t)
	doc := decode[models.Document](t, upload(t, e, auth.RoleEditor))

	rec := action(t, e, auth.RoleEditor, map[string]any{
		"action":      "save_v1",
		"documentId":  doc.ID,
		"jsonContent": map[string]any{"A": map[string]any{"extracted_data": strings.Repeat("x", 5<<20), "pages": []int{1}}},
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

func TestHealth_Degraded(t *testing.T) {
	h := NewHandler("test", map[string]Pinger{
		"database": repository.NewMemoryStore(),
		"redis":    failingPinger{},
	})
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "ok", status.Checks["database"])
	assert.Equal(t, assert.AnError.Error(), status.Checks["redis"])
}
