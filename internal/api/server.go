package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/faisal-mohamed/rfdb-new/internal/auth"
	"github.com/faisal-mohamed/rfdb-new/internal/render"
	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/storage"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// MaxUploadBytes caps the size of an uploaded RFP file.
const MaxUploadBytes = 25 << 20

// Request body limits. Uploads leave room for the multipart envelope.
const (
	uploadBodyLimit = "26M"
	actionBodyLimit = "4M"
)

// Server implements ServerInterface.
type Server struct {
	Workflow *services.WorkflowService
	Store    storage.ObjectStore
	Logger   Logger
}

// NewServer creates a new Server.
func NewServer(wf *services.WorkflowService, store storage.ObjectStore, logger Logger) *Server {
	return &Server{Workflow: wf, Store: store, Logger: logger}
}

var _ ServerInterface = (*Server)(nil)

func caller(c echo.Context) (auth.Caller, error) {
	cl, ok := auth.FromContext(c.Request().Context())
	if !ok {
		return auth.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "caller not found in context")
	}
	return cl, nil
}

// CreateDocument registers an uploaded file
// (POST /api/v1/documents)
func (s *Server) CreateDocument(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	if !cl.Role.CanUpload() {
		return &models.ForbiddenError{Role: string(cl.Role), Action: "upload documents"}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fh.Size > MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to open upload: "+err.Error())
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload: "+err.Error())
	}

	var tags []string
	for _, t := range strings.Split(c.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	doc, err := s.Workflow.RegisterDocument(c.Request().Context(), services.RegisterInput{
		FileName:     fh.Filename,
		MimeType:     fh.Header.Get(echo.HeaderContentType),
		Content:      content,
		CustomerName: strings.TrimSpace(c.FormValue("customerName")),
		Description:  c.FormValue("description"),
		Tags:         tags,
	}, cl.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

// GetDocument returns a document with its versions
// (GET /api/v1/documents/{id})
func (s *Server) GetDocument(c echo.Context, id openapi_types.UUID) error {
	if _, err := caller(c); err != nil {
		return err
	}
	doc, err := s.Workflow.GetDocument(c.Request().Context(), id.String())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadDocument streams the generated deliverable
// (GET /api/v1/documents/{id}/download)
func (s *Server) DownloadDocument(c echo.Context, id openapi_types.UUID) error {
	if _, err := caller(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := s.Workflow.GetDocument(ctx, id.String())
	if err != nil {
		return err
	}
	if doc.V2 == nil || doc.V2.GeneratedDocumentPath == nil {
		return models.NewNotFound("generated document for", id.String())
	}

	key := *doc.V2.GeneratedDocumentPath
	data, contentType, err := s.Store.Get(ctx, key)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+render.Filename(doc.Document.Title(), key)+`"`)
	return c.Blob(http.StatusOK, contentType, data)
}

// workflowRequest is the body of POST /api/v1/workflow.
type workflowRequest struct {
	Action      workflow.Action `json:"action"`
	DocumentID  string          `json:"documentId"`
	VersionID   string          `json:"versionId"`
	JSONContent json.RawMessage `json:"jsonContent"`
	Path        []string        `json:"path"`
	Text        string          `json:"text"`
}

func (r workflowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.By(func(any) error {
			if !r.Action.Valid() {
				return validation.NewError("validation_action", "must be a known workflow action")
			}
			return nil
		})),
		validation.Field(&r.DocumentID, validation.Required, is.UUID),
		validation.Field(&r.VersionID, is.UUID),
	)
}

// ExecuteWorkflowAction runs one workflow action
// (POST /api/v1/workflow)
func (s *Server) ExecuteWorkflowAction(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}

	var req workflowRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := cl.Authorize(req.Action); err != nil {
		return err
	}

	content := req.JSONContent
	if string(content) == "null" {
		content = nil
	}
	result, err := s.Workflow.Execute(c.Request().Context(), services.Command{
		Action:     req.Action,
		DocumentID: req.DocumentID,
		VersionID:  req.VersionID,
		Content:    content,
		Path:       req.Path,
		Text:       req.Text,
	}, cl.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetWorkflowStats returns document counts per status
// (GET /api/v1/workflow/stats)
func (s *Server) GetWorkflowStats(c echo.Context) error {
	if _, err := caller(c); err != nil {
		return err
	}
	stats, err := s.Workflow.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
