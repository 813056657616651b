package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// MemoryStore keeps documents and versions in process memory. It backs the
// "memory" database driver and the service tests. Values are copied in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	documents map[string]*models.Document
	versions  map[string]*models.DocumentVersion
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*models.Document),
		versions:  make(map[string]*models.DocumentVersion),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

type memTxKey struct{}

// memTx is the undo log of a memory transaction: the value each touched key
// held before its first write, or nil if the key did not exist.
type memTx struct {
	documents map[string]*models.Document
	versions  map[string]*models.DocumentVersion
}

func memTxFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

// ExecTx serialises transactions. If fn fails, only the keys fn wrote are
// restored, so writes made outside the transaction survive. A transaction
// already in ctx is reused.
func (s *MemoryStore) ExecTx(ctx context.Context, fn TxFn) error {
	if memTxFrom(ctx) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{
		documents: make(map[string]*models.Document),
		versions:  make(map[string]*models.DocumentVersion),
	}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		s.mu.Lock()
		s.rollbackLocked(tx)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) rollbackLocked(tx *memTx) {
	for id, prev := range tx.documents {
		if prev == nil {
			delete(s.documents, id)
		} else {
			s.documents[id] = prev
		}
	}
	for id, prev := range tx.versions {
		if prev == nil {
			delete(s.versions, id)
		} else {
			s.versions[id] = prev
		}
	}
}

// touchDocumentLocked records the pre-image of a document written inside a
// transaction. s.mu must be held.
func (s *MemoryStore) touchDocumentLocked(ctx context.Context, id string) {
	tx := memTxFrom(ctx)
	if tx == nil {
		return
	}
	if _, seen := tx.documents[id]; seen {
		return
	}
	var prev *models.Document
	if doc, ok := s.documents[id]; ok {
		prev = copyDocument(doc)
	}
	tx.documents[id] = prev
}

func (s *MemoryStore) touchVersionLocked(ctx context.Context, id string) {
	tx := memTxFrom(ctx)
	if tx == nil {
		return
	}
	if _, seen := tx.versions[id]; seen {
		return
	}
	var prev *models.DocumentVersion
	if v, ok := s.versions[id]; ok {
		prev = copyVersion(v)
	}
	tx.versions[id] = prev
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if _, exists := s.documents[doc.ID]; exists {
		return &models.ConflictError{Message: fmt.Sprintf("document %s already exists", doc.ID)}
	}
	if doc.WorkflowStatus == "" {
		doc.WorkflowStatus = models.StatusUploaded
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.CreatedAt, doc.UpdatedAt = now, now
	s.touchDocumentLocked(ctx, doc.ID)
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, models.NewNotFound("document", id)
	}
	return copyDocument(doc), nil
}

func (s *MemoryStore) UpdateDocumentStatus(ctx context.Context, id string, expected, next models.WorkflowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return models.NewNotFound("document", id)
	}
	if doc.WorkflowStatus != expected {
		return &models.ConflictError{Message: fmt.Sprintf(
			"document %s status changed concurrently: expected %s, found %s", id, expected, doc.WorkflowStatus)}
	}
	s.touchDocumentLocked(ctx, id)
	doc.WorkflowStatus = next
	doc.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) CountDocumentsByStatus(ctx context.Context) (map[models.WorkflowStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.WorkflowStatus]int)
	for _, doc := range s.documents {
		counts[doc.WorkflowStatus]++
	}
	return counts, nil
}

func (s *MemoryStore) ResetUnknownStatuses(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, doc := range s.documents {
		if !doc.WorkflowStatus.Valid() {
			s.touchDocumentLocked(ctx, id)
			doc.WorkflowStatus = models.StatusUploaded
			doc.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, id string) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, models.NewNotFound("version", id)
	}
	return copyVersion(v), nil
}

func (s *MemoryStore) FindVersion(ctx context.Context, documentID string, versionType models.VersionType) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v := s.findLocked(documentID, versionType); v != nil {
		return copyVersion(v), nil
	}
	return nil, models.NewNotFound(versionType.Short()+" version of document", documentID)
}

func (s *MemoryStore) findLocked(documentID string, versionType models.VersionType) *models.DocumentVersion {
	for _, v := range s.versions {
		if v.DocumentID == documentID && v.VersionType == versionType {
			return v
		}
	}
	return nil
}

func (s *MemoryStore) ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DocumentVersion
	for _, v := range s.versions {
		if v.DocumentID == documentID {
			out = append(out, copyVersion(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionType < out[j].VersionType })
	return out, nil
}

func (s *MemoryStore) UpsertVersion(ctx context.Context, v *models.DocumentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[v.DocumentID]; !ok {
		return models.NewNotFound("document", v.DocumentID)
	}
	now := s.now()
	if existing := s.findLocked(v.DocumentID, v.VersionType); existing != nil {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	s.touchVersionLocked(ctx, v.ID)
	s.versions[v.ID] = copyVersion(v)
	return nil
}

func (s *MemoryStore) UpdateVersion(ctx context.Context, v *models.DocumentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.versions[v.ID]
	if !ok {
		return models.NewNotFound("version", v.ID)
	}
	updated := copyVersion(existing)
	updated.Status = v.Status
	updated.Content = v.Content
	updated.EditedBy, updated.EditedAt = v.EditedBy, v.EditedAt
	updated.ApprovedBy, updated.ApprovedAt = v.ApprovedBy, v.ApprovedAt
	updated.GeneratedDocumentPath = v.GeneratedDocumentPath
	updated.UpdatedAt = s.now()
	v.UpdatedAt = updated.UpdatedAt
	s.touchVersionLocked(ctx, v.ID)
	s.versions[v.ID] = updated
	return nil
}

func copyDocument(d *models.Document) *models.Document {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	c.FileContent = append([]byte(nil), d.FileContent...)
	return &c
}

// Trees are never mutated in place, so the content root is shared.
func copyVersion(v *models.DocumentVersion) *models.DocumentVersion {
	c := *v
	c.ExternalResponse = append([]byte(nil), v.ExternalResponse...)
	return &c
}
