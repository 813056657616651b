package repository

import (
	"context"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// DocumentStore persists documents and their workflow status.
type DocumentStore interface {
	// CreateDocument inserts a new document. ID and timestamps are filled in
	// when empty.
	CreateDocument(ctx context.Context, doc *models.Document) error
	// GetDocument returns a *models.NotFoundError when the id is unknown.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// UpdateDocumentStatus moves the status from expected to next. It returns
	// a *models.ConflictError when the stored status is no longer expected.
	UpdateDocumentStatus(ctx context.Context, id string, expected, next models.WorkflowStatus) error
	// CountDocumentsByStatus returns the number of documents per status.
	CountDocumentsByStatus(ctx context.Context) (map[models.WorkflowStatus]int, error)
	// ResetUnknownStatuses sets every document whose status is not a known
	// workflow status back to UPLOADED and returns how many were changed.
	ResetUnknownStatuses(ctx context.Context) (int64, error)
}

// VersionStore persists the per-(document, version type) rows.
type VersionStore interface {
	// GetVersion returns a *models.NotFoundError when the id is unknown.
	GetVersion(ctx context.Context, id string) (*models.DocumentVersion, error)
	// FindVersion returns the row for (documentID, versionType) or a
	// *models.NotFoundError.
	FindVersion(ctx context.Context, documentID string, versionType models.VersionType) (*models.DocumentVersion, error)
	// ListVersions returns all rows of a document ordered by version type.
	ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error)
	// UpsertVersion inserts the row or overwrites the existing one for the
	// same (document, version type), keeping its id and creation time.
	UpsertVersion(ctx context.Context, version *models.DocumentVersion) error
	// UpdateVersion saves status, content, audit and path fields.
	UpdateVersion(ctx context.Context, version *models.DocumentVersion) error
}

// Repository is the full persistence surface used by the services.
type Repository interface {
	DocumentStore
	VersionStore
	Ping(ctx context.Context) error
}

// TxFn is a unit of work run inside a transaction.
type TxFn func(ctx context.Context) error

// TransactionManager runs a function atomically. Stores pick the transaction
// up from the context they are given.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
