package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/faisal-mohamed/rfdb-new/internal/lock"
	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/telemetry"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// Command is a single workflow request.
type Command struct {
	Action     workflow.Action `json:"action"`
	DocumentID string          `json:"documentId"`
	// VersionID optionally pins the version the action applies to. When
	// empty the document's version of the action's type is used.
	VersionID string `json:"versionId,omitempty"`
	// Content is the full replacement tree for save_v1 and save_v2.
	Content json.RawMessage `json:"jsonContent,omitempty"`
	// Path and Text edit a single leaf for save_v1 and save_v2 when Content
	// is empty.
	Path []string `json:"path,omitempty"`
	Text string   `json:"text,omitempty"`
}

// Result is returned by Execute.
type Result struct {
	Action   workflow.Action         `json:"action"`
	Document *models.Document        `json:"document"`
	Version  *models.DocumentVersion `json:"version,omitempty"`
}

// RegisterInput describes an uploaded file.
type RegisterInput struct {
	FileName     string
	MimeType     string
	Content      []byte
	CustomerName string
	Description  string
	Tags         []string
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FileName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Content, validation.Required),
		validation.Field(&in.CustomerName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Description, validation.Length(0, 2000)),
	)
}

// WorkflowService is the entry point for every workflow action. It
// serialises actions per document, checks the transition table and
// delegates to the version service, the extraction orchestrator and the
// document generator.
type WorkflowService struct {
	repo         repository.Repository
	tx           repository.TransactionManager
	versions     *VersionService
	orchestrator *ExtractionOrchestrator
	generator    *DocumentGenerator
	locker       lock.Locker
	logger       Logger
	metrics      *telemetry.Metrics
	now          func() time.Time
}

// Option configures a WorkflowService.
type Option func(*options)

type options struct {
	metrics           *telemetry.Metrics
	extractionTimeout time.Duration
	now               func() time.Time
}

// WithMetrics records action and extraction metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithExtractionTimeout bounds each extraction call. Zero disables the bound.
func WithExtractionTimeout(d time.Duration) Option {
	return func(o *options) { o.extractionTimeout = d }
}

// WithClock overrides the clock used for audit stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	repo repository.Repository,
	tx repository.TransactionManager,
	client ExtractionClient,
	renderer Renderer,
	locker lock.Locker,
	logger Logger,
	opts ...Option,
) *WorkflowService {
	o := options{
		metrics:           telemetry.Noop(),
		extractionTimeout: 90 * time.Second,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	versions := NewVersionService(repo)
	versions.now = o.now
	return &WorkflowService{
		repo:         repo,
		tx:           tx,
		versions:     versions,
		orchestrator: NewExtractionOrchestrator(repo, versions, client, tx, logger, o.metrics, o.extractionTimeout),
		generator:    NewDocumentGenerator(repo, versions, renderer, tx, logger),
		locker:       locker,
		logger:       logger,
		metrics:      o.metrics,
		now:          o.now,
	}
}

// Execute runs one workflow action on behalf of caller. Only one action per
// document runs at a time; a concurrent action fails with a
// *models.ConflictError.
func (s *WorkflowService) Execute(ctx context.Context, cmd Command, caller string) (result *Result, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "workflow."+string(cmd.Action))
	span.SetAttributes(
		attribute.String("document.id", cmd.DocumentID),
		attribute.String("caller", caller),
	)
	defer func() {
		outcome := telemetry.OutcomeOK
		switch {
		case err == nil:
		case errors.Is(err, models.ErrExternalService) || models.StatusCode(err) >= 500:
			outcome = telemetry.OutcomeFailed
		default:
			outcome = telemetry.OutcomeRejected
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.RecordAction(ctx, string(cmd.Action), outcome)
		span.End()
	}()

	rule, err := workflow.Lookup(cmd.Action)
	if err != nil {
		return nil, models.NewPrecondition("%s", err.Error())
	}
	if cmd.DocumentID == "" {
		return nil, models.NewNotFound("document", "")
	}

	unlock, err := s.locker.TryLock(ctx, "document:"+cmd.DocumentID)
	if errors.Is(err, lock.ErrLocked) {
		return nil, &models.ConflictError{Message: "another workflow action is in progress for document " + cmd.DocumentID}
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			s.logger.Warn("failed to release document lock", "document_id", cmd.DocumentID, "error", uerr)
		}
	}()

	doc, err := s.repo.GetDocument(ctx, cmd.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := rule.Check(doc.WorkflowStatus); err != nil {
		return nil, err
	}

	var version *models.DocumentVersion
	switch {
	case rule.External() && rule.VersionType == models.Version1:
		version, err = s.orchestrator.RunV1(ctx, doc, caller)
	case rule.External():
		version, err = s.orchestrator.RunV2(ctx, doc, caller)
	default:
		version, err = s.resolveVersion(ctx, doc, rule.VersionType, cmd.VersionID)
		if err == nil {
			err = s.applyLocal(ctx, rule, doc, version, cmd, caller)
		}
	}
	if err != nil {
		s.logger.Info("workflow action rejected",
			"action", cmd.Action, "document_id", doc.ID, "status", doc.WorkflowStatus, "error", err)
		return nil, err
	}

	s.logger.Info("workflow action applied",
		"action", cmd.Action, "document_id", doc.ID, "status", doc.WorkflowStatus, "caller", caller)
	return &Result{Action: cmd.Action, Document: doc, Version: version}, nil
}

// applyLocal runs an action that only touches the database. The version
// change and the status advance commit together.
func (s *WorkflowService) applyLocal(ctx context.Context, rule workflow.Rule, doc *models.Document, v *models.DocumentVersion, cmd Command, caller string) error {
	if rule.Action == workflow.ActionGenerateDocument {
		return s.generator.Generate(ctx, doc, v)
	}

	// Replacement content is parsed before the transaction opens.
	var edited rfptree.Node
	if (rule.Action == workflow.ActionSaveV1 || rule.Action == workflow.ActionSaveV2) && len(cmd.Content) > 0 {
		root, err := s.versions.CheckEdits(v, cmd.Content)
		if err != nil {
			return err
		}
		edited = root
	}

	next := rule.Next(doc.WorkflowStatus)
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		switch rule.Action {
		case workflow.ActionStartEditV1, workflow.ActionStartEditV2:
			err = s.versions.StartEditing(ctx, v, caller)
		case workflow.ActionSaveV1, workflow.ActionSaveV2:
			err = s.save(ctx, v, cmd, edited, caller)
		case workflow.ActionCompleteV1, workflow.ActionCompleteV2:
			err = s.versions.Complete(ctx, v, caller)
		case workflow.ActionApprove:
			err = s.versions.Approve(ctx, v, caller)
		default:
			err = models.NewPrecondition("action %s is not handled", rule.Action)
		}
		if err != nil {
			return err
		}
		if next == doc.WorkflowStatus {
			return nil
		}
		return s.repo.UpdateDocumentStatus(ctx, doc.ID, doc.WorkflowStatus, next)
	})
	if err != nil {
		return err
	}
	doc.WorkflowStatus = next

	if rule.VersionType == models.Version1 && rule.Action != workflow.ActionStartEditV1 {
		s.warnIfV2Exists(ctx, doc.ID)
	}
	return nil
}

func (s *WorkflowService) save(ctx context.Context, v *models.DocumentVersion, cmd Command, edited rfptree.Node, caller string) error {
	switch {
	case edited != nil:
		return s.versions.SaveEdits(ctx, v, edited, caller)
	case len(cmd.Path) > 0:
		return s.versions.UpdateLeaf(ctx, v, cmd.Path, cmd.Text, caller)
	default:
		return &models.InvalidContentError{Errors: []string{"jsonContent is required"}}
	}
}

// resolveVersion finds the version an action applies to.
func (s *WorkflowService) resolveVersion(ctx context.Context, doc *models.Document, versionType models.VersionType, versionID string) (*models.DocumentVersion, error) {
	if versionID != "" {
		v, err := s.versions.Get(ctx, versionID)
		if err != nil {
			return nil, err
		}
		if v.DocumentID != doc.ID || v.VersionType != versionType {
			return nil, models.NewPrecondition("version %s is not the %s version of document %s", versionID, versionType.Short(), doc.ID)
		}
		return v, nil
	}
	v, err := s.versions.Latest(ctx, doc.ID, versionType)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, models.NewNotFound(versionType.Short()+" version of document", doc.ID)
	}
	return v, nil
}

func (s *WorkflowService) warnIfV2Exists(ctx context.Context, documentID string) {
	v2, err := s.versions.Latest(ctx, documentID, models.Version2)
	if err != nil || v2 == nil {
		return
	}
	s.logger.Warn("V1 edited after V2 was created; V2 may be stale", "document_id", documentID, "v2_id", v2.ID)
}

// RegisterDocument stores an uploaded file with status UPLOADED.
func (s *WorkflowService) RegisterDocument(ctx context.Context, in RegisterInput, uploader string) (*models.Document, error) {
	if err := in.Validate(); err != nil {
		return nil, &models.InvalidContentError{Errors: validationMessages(err)}
	}
	now := s.now().UTC()
	doc := &models.Document{
		FileName:       in.FileName,
		FileType:       strings.TrimPrefix(strings.ToLower(filepath.Ext(in.FileName)), "."),
		MimeType:       in.MimeType,
		FileSize:       int64(len(in.Content)),
		FileContent:    in.Content,
		CustomerName:   in.CustomerName,
		Description:    in.Description,
		Tags:           in.Tags,
		WorkflowStatus: models.StatusUploaded,
		UploadedBy:     uploader,
		UploadedAt:     now,
	}
	if doc.MimeType == "" {
		doc.MimeType = "application/octet-stream"
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("document registered", "document_id", doc.ID, "file_name", doc.FileName, "uploaded_by", uploader)
	return doc, nil
}

// GetDocument returns the document with its versions.
func (s *WorkflowService) GetDocument(ctx context.Context, id string) (*models.DocumentWithVersions, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.List(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &models.DocumentWithVersions{Document: doc, Versions: versions}
	for _, v := range versions {
		switch v.VersionType {
		case models.Version1:
			out.V1 = v
		case models.Version2:
			out.V2 = v
		}
	}
	return out, nil
}

// Stats counts documents per status. Every status is present in the
// breakdown; pending approvals are documents waiting at V2_COMPLETED.
func (s *WorkflowService) Stats(ctx context.Context) (*models.WorkflowStats, error) {
	counts, err := s.repo.CountDocumentsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.WorkflowStats{StatusBreakdown: make(map[models.WorkflowStatus]int, len(models.WorkflowStatuses))}
	for _, st := range models.WorkflowStatuses {
		stats.StatusBreakdown[st] = 0
	}
	for st, n := range counts {
		stats.StatusBreakdown[st] += n
		stats.TotalDocuments += n
	}
	stats.PendingApprovals = stats.StatusBreakdown[models.StatusV2Completed]
	return stats, nil
}

// Backfill resets documents carrying an unknown status to UPLOADED.
func (s *WorkflowService) Backfill(ctx context.Context) (int64, error) {
	n, err := s.repo.ResetUnknownStatuses(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("backfilled document statuses", "updated", n)
	return n, nil
}

// validationMessages flattens ozzo validation errors into "field: message"
// strings in a stable order.
func validationMessages(err error) []string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []string{err.Error()}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+errs[k].Error())
	}
	return out
}
