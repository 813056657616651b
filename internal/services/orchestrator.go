package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/internal/telemetry"
	"github.com/faisal-mohamed/rfdb-new/internal/workflow"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// ExtractionOrchestrator runs process_v1 and process_v2: it holds the
// document in the pending status while the extraction service works, stores
// the result and advances the status, or restores the previous status on
// failure.
type ExtractionOrchestrator struct {
	docs     repository.DocumentStore
	versions *VersionService
	client   ExtractionClient
	tx       repository.TransactionManager
	logger   Logger
	metrics  *telemetry.Metrics
	timeout  time.Duration
}

func NewExtractionOrchestrator(
	docs repository.DocumentStore,
	versions *VersionService,
	client ExtractionClient,
	tx repository.TransactionManager,
	logger Logger,
	metrics *telemetry.Metrics,
	timeout time.Duration,
) *ExtractionOrchestrator {
	return &ExtractionOrchestrator{
		docs:     docs,
		versions: versions,
		client:   client,
		tx:       tx,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// RunV1 extracts the initial summary from the uploaded file.
func (o *ExtractionOrchestrator) RunV1(ctx context.Context, doc *models.Document, caller string) (*models.DocumentVersion, error) {
	rule, err := workflow.Lookup(workflow.ActionProcessV1)
	if err != nil {
		return nil, err
	}
	v2, err := o.versions.Latest(ctx, doc.ID, models.Version2)
	if err != nil {
		return nil, err
	}
	if v2 != nil {
		o.logger.Warn("regenerating V1 while a V2 version exists; V2 may no longer match",
			"document_id", doc.ID, "v2_id", v2.ID, "v2_status", v2.Status)
	}
	return o.run(ctx, doc, rule, nil, caller)
}

// RunV2 refines the completed V1 content into V2.
func (o *ExtractionOrchestrator) RunV2(ctx context.Context, doc *models.Document, caller string) (*models.DocumentVersion, error) {
	rule, err := workflow.Lookup(workflow.ActionProcessV2)
	if err != nil {
		return nil, err
	}
	v1, err := o.versions.Latest(ctx, doc.ID, models.Version1)
	if err != nil {
		return nil, err
	}
	if v1 == nil {
		return nil, models.NewPrecondition("process_v2 requires a completed V1 version, document %s has none", doc.ID)
	}
	if v1.Status != models.VersionCompleted && v1.Status != models.VersionApproved {
		return nil, models.NewPrecondition("process_v2 requires a completed V1 version, V1 is %s", v1.Status)
	}
	prior := v1.Content
	return o.run(ctx, doc, rule, &prior, caller)
}

func (o *ExtractionOrchestrator) run(ctx context.Context, doc *models.Document, rule workflow.Rule, prior *rfptree.Tree, caller string) (*models.DocumentVersion, error) {
	previous := doc.WorkflowStatus
	if err := o.docs.UpdateDocumentStatus(ctx, doc.ID, previous, rule.Pending); err != nil {
		return nil, err
	}
	doc.WorkflowStatus = rule.Pending

	result, err := o.extract(ctx, doc, rule.VersionType, prior)
	if err != nil {
		o.revert(ctx, doc, rule, previous, err)
		return nil, err
	}

	var version *models.DocumentVersion
	err = o.tx.ExecTx(ctx, func(ctx context.Context) error {
		v, err := o.versions.CreateOrReplace(ctx, doc.ID, rule.VersionType, result, caller)
		if err != nil {
			return err
		}
		if err := o.docs.UpdateDocumentStatus(ctx, doc.ID, rule.Pending, rule.To); err != nil {
			return err
		}
		version = v
		return nil
	})
	if err != nil {
		o.revert(ctx, doc, rule, previous, err)
		return nil, err
	}

	doc.WorkflowStatus = rule.To
	o.logger.Info("extraction stored",
		"document_id", doc.ID,
		"version_type", rule.VersionType,
		"version_id", version.ID,
		"request_id", version.ExternalRequestID)
	return version, nil
}

// extract calls the extraction service under the configured timeout and
// turns every failure into a *models.ExternalServiceError.
func (o *ExtractionOrchestrator) extract(ctx context.Context, doc *models.Document, versionType models.VersionType, prior *rfptree.Tree) (*ExtractionResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "extraction.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("version.type", string(versionType)),
	)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := o.client.Process(ctx, ExtractionRequest{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		FileContent: doc.FileContent,
		VersionType: versionType,
		PriorTree:   prior,
	})
	switch {
	case err != nil:
		var ext *models.ExternalServiceError
		if !errors.As(err, &ext) {
			msg := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				msg = "extraction service timed out after " + o.timeout.String()
			}
			err = &models.ExternalServiceError{Service: extractionService, Message: msg, Err: err}
		}
	case result == nil:
		err = &models.ExternalServiceError{Service: extractionService, Message: "extraction service returned no result"}
	case !result.Success:
		msg := result.Error
		if msg == "" {
			msg = "extraction service reported a failure"
		}
		err = &models.ExternalServiceError{Service: extractionService, Message: msg}
	}
	o.metrics.RecordExtraction(ctx, string(versionType), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// revert restores the status the document had before the action. It runs
// even when ctx was cancelled so a document is never left pending.
func (o *ExtractionOrchestrator) revert(ctx context.Context, doc *models.Document, rule workflow.Rule, previous models.WorkflowStatus, cause error) {
	target := rule.RevertTo(previous)
	err := o.docs.UpdateDocumentStatus(context.WithoutCancel(ctx), doc.ID, rule.Pending, target)
	if err != nil {
		o.logger.Error("failed to revert document status",
			"document_id", doc.ID, "from", rule.Pending, "to", target, "error", err, "cause", cause)
		return
	}
	doc.WorkflowStatus = target
	o.logger.Warn("extraction failed, status reverted",
		"document_id", doc.ID, "action", rule.Action, "status", target, "error", cause)
}
