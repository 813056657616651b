package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// conn returns the transaction in ctx, or the pool.
func (s *PostgresStore) conn(ctx context.Context) DBTX {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return s.db
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const documentColumns = `id, file_name, file_type, mime_type, file_size, file_content, customer_name,
	description, tags, workflow_status, uploaded_by, uploaded_at, created_at, updated_at`

// CreateDocument inserts a new document.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.WorkflowStatus == "" {
		doc.WorkflowStatus = models.StatusUploaded
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	doc.CreatedAt, doc.UpdatedAt = now, now

	_, err := s.conn(ctx).Exec(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		doc.ID, doc.FileName, doc.FileType, doc.MimeType, doc.FileSize, doc.FileContent, doc.CustomerName,
		doc.Description, doc.Tags, doc.WorkflowStatus, doc.UploadedBy, doc.UploadedAt, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Message: fmt.Sprintf("document %s already exists", doc.ID)}
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by its ID.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.NewNotFound("document", id)
	}
	var doc models.Document
	err := s.conn(ctx).QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id).Scan(
		&doc.ID, &doc.FileName, &doc.FileType, &doc.MimeType, &doc.FileSize, &doc.FileContent, &doc.CustomerName,
		&doc.Description, &doc.Tags, &doc.WorkflowStatus, &doc.UploadedBy, &doc.UploadedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, models.NewNotFound("document", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// UpdateDocumentStatus is a compare-and-swap on workflow_status.
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, id string, expected, next models.WorkflowStatus) error {
	tag, err := s.conn(ctx).Exec(ctx,
		`UPDATE documents SET workflow_status = $1, updated_at = NOW() WHERE id = $2 AND workflow_status = $3`,
		next, id, expected)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	current, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	return &models.ConflictError{Message: fmt.Sprintf(
		"document %s status changed concurrently: expected %s, found %s", id, expected, current.WorkflowStatus)}
}

// CountDocumentsByStatus groups documents by workflow status.
func (s *PostgresStore) CountDocumentsByStatus(ctx context.Context) (map[models.WorkflowStatus]int, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT workflow_status, COUNT(*) FROM documents GROUP BY workflow_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.WorkflowStatus]int)
	for rows.Next() {
		var status models.WorkflowStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ResetUnknownStatuses moves documents with an unrecognised status to UPLOADED.
func (s *PostgresStore) ResetUnknownStatuses(ctx context.Context) (int64, error) {
	known := make([]string, len(models.WorkflowStatuses))
	for i, st := range models.WorkflowStatuses {
		known[i] = string(st)
	}
	tag, err := s.conn(ctx).Exec(ctx,
		`UPDATE documents SET workflow_status = $1, updated_at = NOW() WHERE NOT (workflow_status = ANY($2))`,
		models.StatusUploaded, known)
	if err != nil {
		return 0, fmt.Errorf("failed to reset document statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

const versionColumns = `id, document_id, version_type, status, json_content, external_request_id, external_response,
	created_by, edited_by, edited_at, approved_by, approved_at, generated_document_path, created_at, updated_at`

func scanVersion(row pgx.Row) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	var content []byte
	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionType, &v.Status, &content, &v.ExternalRequestID,
		&v.ExternalResponse, &v.CreatedBy, &v.EditedBy, &v.EditedAt, &v.ApprovedBy, &v.ApprovedAt,
		&v.GeneratedDocumentPath, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	root, err := rfptree.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("stored content of version %s: %w", v.ID, err)
	}
	v.Content = rfptree.Tree{Root: root}
	return &v, nil
}

// GetVersion retrieves a version by its ID.
func (s *PostgresStore) GetVersion(ctx context.Context, id string) (*models.DocumentVersion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.NewNotFound("version", id)
	}
	v, err := scanVersion(s.conn(ctx).QueryRow(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, models.NewNotFound("version", id)
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// FindVersion retrieves the row for a document and version type.
func (s *PostgresStore) FindVersion(ctx context.Context, documentID string, versionType models.VersionType) (*models.DocumentVersion, error) {
	if _, err := uuid.Parse(documentID); err != nil {
		return nil, models.NewNotFound(versionType.Short()+" version of document", documentID)
	}
	v, err := scanVersion(s.conn(ctx).QueryRow(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 AND version_type = $2`,
		documentID, versionType))
	if err != nil {
		if isNoRows(err) {
			return nil, models.NewNotFound(versionType.Short()+" version of document", documentID)
		}
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	return v, nil
}

// ListVersions returns every version of a document.
func (s *PostgresStore) ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 ORDER BY version_type`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// UpsertVersion writes the row keyed by (document_id, version_type).
func (s *PostgresStore) UpsertVersion(ctx context.Context, v *models.DocumentVersion) error {
	content, err := rfptree.Marshal(v.Content.Root)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	err = s.conn(ctx).QueryRow(ctx, `INSERT INTO document_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (document_id, version_type) DO UPDATE SET
			status = EXCLUDED.status,
			json_content = EXCLUDED.json_content,
			external_request_id = EXCLUDED.external_request_id,
			external_response = EXCLUDED.external_response,
			created_by = EXCLUDED.created_by,
			edited_by = EXCLUDED.edited_by,
			edited_at = EXCLUDED.edited_at,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			generated_document_path = EXCLUDED.generated_document_path,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`,
		v.ID, v.DocumentID, v.VersionType, v.Status, content, v.ExternalRequestID, nullJSON(v.ExternalResponse),
		v.CreatedBy, v.EditedBy, v.EditedAt, v.ApprovedBy, v.ApprovedAt, v.GeneratedDocumentPath, now,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert version: %w", err)
	}
	return nil
}

// UpdateVersion saves the mutable fields of an existing version.
func (s *PostgresStore) UpdateVersion(ctx context.Context, v *models.DocumentVersion) error {
	content, err := rfptree.Marshal(v.Content.Root)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	err = s.conn(ctx).QueryRow(ctx, `UPDATE document_versions SET
			status = $1, json_content = $2, edited_by = $3, edited_at = $4,
			approved_by = $5, approved_at = $6, generated_document_path = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`,
		v.Status, content, v.EditedBy, v.EditedAt, v.ApprovedBy, v.ApprovedAt, v.GeneratedDocumentPath, v.ID,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.NewNotFound("version", v.ID)
		}
		return fmt.Errorf("failed to update version: %w", err)
	}
	return nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
