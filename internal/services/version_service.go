package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/faisal-mohamed/rfdb-new/internal/repository"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// VersionService manages the content and edit lifecycle of document
// versions. It never touches the document workflow status.
type VersionService struct {
	store repository.VersionStore
	now   func() time.Time
}

// NewVersionService creates a new VersionService.
func NewVersionService(store repository.VersionStore) *VersionService {
	return &VersionService{store: store, now: time.Now}
}

// CreateOrReplace stores freshly extracted content for (documentID,
// versionType) with status GENERATED. An existing row is overwritten in
// place and its edit and approval stamps are cleared.
func (s *VersionService) CreateOrReplace(ctx context.Context, documentID string, versionType models.VersionType, result *ExtractionResult, createdBy string) (*models.DocumentVersion, error) {
	if !versionType.Valid() {
		return nil, fmt.Errorf("unknown version type %q", versionType)
	}
	v := &models.DocumentVersion{
		DocumentID:        documentID,
		VersionType:       versionType,
		Status:            models.VersionGenerated,
		Content:           result.Data,
		ExternalRequestID: result.RequestID,
		ExternalResponse:  result.Raw,
		CreatedBy:         createdBy,
	}
	if err := s.store.UpsertVersion(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns the version with id.
func (s *VersionService) Get(ctx context.Context, id string) (*models.DocumentVersion, error) {
	return s.store.GetVersion(ctx, id)
}

// Latest returns the version of the given type, or nil if none exists.
func (s *VersionService) Latest(ctx context.Context, documentID string, versionType models.VersionType) (*models.DocumentVersion, error) {
	v, err := s.store.FindVersion(ctx, documentID, versionType)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// List returns all versions of a document.
func (s *VersionService) List(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	return s.store.ListVersions(ctx, documentID)
}

// StartEditing marks v as being edited.
func (s *VersionService) StartEditing(ctx context.Context, v *models.DocumentVersion, editor string) error {
	v.Status = models.VersionEditing
	s.stampEdit(v, editor)
	return s.store.UpdateVersion(ctx, v)
}

// CheckEdits parses raw as replacement content for v. raw must be a valid
// tree with the same structure as the current content; only leaf text may
// change. Failures are reported as a *models.InvalidContentError.
func (s *VersionService) CheckEdits(v *models.DocumentVersion, raw []byte) (rfptree.Node, error) {
	root, err := rfptree.Parse(raw)
	var verr *rfptree.ValidationError
	if errors.As(err, &verr) {
		return nil, &models.InvalidContentError{Errors: verr.Errors}
	}
	if err != nil {
		return nil, &models.InvalidContentError{Errors: []string{err.Error()}}
	}
	if v.Content.Root != nil {
		if errs := rfptree.StructureErrors(v.Content.Root, root); len(errs) > 0 {
			return nil, &models.InvalidContentError{Errors: errs}
		}
	}
	return root, nil
}

// SaveEdits replaces the content of v with a tree accepted by CheckEdits. On
// failure v is left untouched.
func (s *VersionService) SaveEdits(ctx context.Context, v *models.DocumentVersion, root rfptree.Node, editor string) error {
	return s.replaceContent(ctx, v, root, editor)
}

// UpdateLeaf replaces the extracted_data of the single leaf at path.
func (s *VersionService) UpdateLeaf(ctx context.Context, v *models.DocumentVersion, path []string, text, editor string) error {
	root, found := rfptree.UpdateLeaf(v.Content.Root, path, text)
	if !found {
		return &models.InvalidContentError{Errors: []string{strings.Join(path, " > ") + " is not a leaf"}}
	}
	return s.replaceContent(ctx, v, root, editor)
}

func (s *VersionService) replaceContent(ctx context.Context, v *models.DocumentVersion, root rfptree.Node, editor string) error {
	prev := v.Content
	v.Content = rfptree.Tree{Root: root}
	s.stampEdit(v, editor)
	if err := s.store.UpdateVersion(ctx, v); err != nil {
		v.Content = prev
		return err
	}
	return nil
}

// Complete marks v as finished editing.
func (s *VersionService) Complete(ctx context.Context, v *models.DocumentVersion, editor string) error {
	v.Status = models.VersionCompleted
	s.stampEdit(v, editor)
	return s.store.UpdateVersion(ctx, v)
}

// Approve records approver on v.
func (s *VersionService) Approve(ctx context.Context, v *models.DocumentVersion, approver string) error {
	if v.Status != models.VersionCompleted {
		return models.NewPrecondition("%s version must be COMPLETED before approval, it is %s", v.VersionType.Short(), v.Status)
	}
	now := s.now().UTC()
	v.Status = models.VersionApproved
	v.ApprovedBy = &approver
	v.ApprovedAt = &now
	return s.store.UpdateVersion(ctx, v)
}

// SetGeneratedPath records where the rendered deliverable was stored.
func (s *VersionService) SetGeneratedPath(ctx context.Context, v *models.DocumentVersion, path string) error {
	v.GeneratedDocumentPath = &path
	return s.store.UpdateVersion(ctx, v)
}

func (s *VersionService) stampEdit(v *models.DocumentVersion, editor string) {
	now := s.now().UTC()
	v.EditedBy = &editor
	v.EditedAt = &now
}
