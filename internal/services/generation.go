package services

import (
	"context"
	"errors"

	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

const renderService = "renderer"

// DocumentGenerator renders the approved V2 and records where it was stored.
type DocumentGenerator struct {
	docs     repository.DocumentStore
	versions *VersionService
	renderer Renderer
	tx       repository.TransactionManager
	logger   Logger
}

func NewDocumentGenerator(docs repository.DocumentStore, versions *VersionService, renderer Renderer, tx repository.TransactionManager, logger Logger) *DocumentGenerator {
	return &DocumentGenerator{docs: docs, versions: versions, renderer: renderer, tx: tx, logger: logger}
}

// Generate renders v2 for doc, stores the path on the version and moves the
// document from APPROVED to COMPLETED. Nothing is recorded if rendering
// fails.
func (g *DocumentGenerator) Generate(ctx context.Context, doc *models.Document, v2 *models.DocumentVersion) error {
	if v2.VersionType != models.Version2 {
		return models.NewPrecondition("only the V2 version can be generated, got %s", v2.VersionType.Short())
	}
	if v2.Status != models.VersionApproved {
		return models.NewPrecondition("generate_document requires an APPROVED V2 version, it is %s", v2.Status)
	}

	path, err := g.renderer.Render(ctx, RenderRequest{
		DocumentID:   doc.ID,
		VersionID:    v2.ID,
		Title:        doc.Title(),
		CustomerName: doc.CustomerName,
		Content:      v2.Content,
	})
	if err != nil {
		var ext *models.ExternalServiceError
		if !errors.As(err, &ext) {
			err = &models.ExternalServiceError{Service: renderService, Message: err.Error(), Err: err}
		}
		return err
	}

	err = g.tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := g.versions.SetGeneratedPath(ctx, v2, path); err != nil {
			return err
		}
		return g.docs.UpdateDocumentStatus(ctx, doc.ID, models.StatusApproved, models.StatusCompleted)
	})
	if err != nil {
		v2.GeneratedDocumentPath = nil
		if derr := g.renderer.Discard(context.WithoutCancel(ctx), path); derr != nil {
			g.logger.Warn("failed to discard unrecorded deliverable", "document_id", doc.ID, "path", path, "error", derr)
		}
		return err
	}
	doc.WorkflowStatus = models.StatusCompleted
	g.logger.Info("document generated", "document_id", doc.ID, "version_id", v2.ID, "path", path)
	return nil
}
