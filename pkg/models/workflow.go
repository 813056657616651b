package models

import (
	"time"

	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// WorkflowStatus is the document-level progress through the review workflow.
type WorkflowStatus string

const (
	StatusUploaded     WorkflowStatus = "UPLOADED"
	StatusProcessingV1 WorkflowStatus = "PROCESSING_V1"
	StatusV1Ready      WorkflowStatus = "V1_READY"
	StatusV1Editing    WorkflowStatus = "V1_EDITING"
	StatusV1Completed  WorkflowStatus = "V1_COMPLETED"
	StatusProcessingV2 WorkflowStatus = "PROCESSING_V2"
	StatusV2Ready      WorkflowStatus = "V2_READY"
	StatusV2Editing    WorkflowStatus = "V2_EDITING"
	StatusV2Completed  WorkflowStatus = "V2_COMPLETED"
	StatusApproved     WorkflowStatus = "APPROVED"
	StatusCompleted    WorkflowStatus = "COMPLETED"
)

// WorkflowStatuses lists every status in happy-path order.
var WorkflowStatuses = []WorkflowStatus{
	StatusUploaded,
	StatusProcessingV1,
	StatusV1Ready,
	StatusV1Editing,
	StatusV1Completed,
	StatusProcessingV2,
	StatusV2Ready,
	StatusV2Editing,
	StatusV2Completed,
	StatusApproved,
	StatusCompleted,
}

// Valid reports whether s is one of the defined statuses.
func (s WorkflowStatus) Valid() bool {
	return s.Ordinal() >= 0
}

// Processing reports whether s marks an extraction in flight.
func (s WorkflowStatus) Processing() bool {
	return s == StatusProcessingV1 || s == StatusProcessingV2
}

// Ordinal is the position of s on the happy path, or -1 if s is unknown.
func (s WorkflowStatus) Ordinal() int {
	for i, v := range WorkflowStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// VersionType identifies one of the two sequential extractions.
type VersionType string

const (
	Version1 VersionType = "VERSION_1"
	Version2 VersionType = "VERSION_2"
)

func (t VersionType) Valid() bool {
	return t == Version1 || t == Version2
}

// Short returns "V1" or "V2".
func (t VersionType) Short() string {
	switch t {
	case Version1:
		return "V1"
	case Version2:
		return "V2"
	}
	return string(t)
}

// VersionStatus is the edit lifecycle of a single version.
type VersionStatus string

const (
	VersionGenerated VersionStatus = "GENERATED"
	VersionEditing   VersionStatus = "EDITING"
	VersionCompleted VersionStatus = "COMPLETED"
	VersionApproved  VersionStatus = "APPROVED"
)

// Document is an uploaded file moving through the review workflow.
type Document struct {
	ID             string         `json:"id"`
	FileName       string         `json:"fileName"`
	FileType       string         `json:"fileType"`
	MimeType       string         `json:"mimeType"`
	FileSize       int64          `json:"fileSize"`
	FileContent    []byte         `json:"-"`
	CustomerName   string         `json:"customerName"`
	Description    string         `json:"description,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	WorkflowStatus WorkflowStatus `json:"workflowStatus"`
	UploadedBy     string         `json:"uploadedBy"`
	UploadedAt     time.Time      `json:"uploadedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Title is the heading used for rendered artifacts.
func (d *Document) Title() string {
	return "RFP Summary - " + d.FileName
}

// DocumentVersion is the single live row for one (document, version type).
// Regeneration overwrites it in place.
type DocumentVersion struct {
	ID                    string        `json:"id"`
	DocumentID            string        `json:"documentId"`
	VersionType           VersionType   `json:"versionType"`
	Status                VersionStatus `json:"status"`
	Content               rfptree.Tree  `json:"jsonContent"`
	ExternalRequestID     string        `json:"externalApiRequestId,omitempty"`
	ExternalResponse      []byte        `json:"-"`
	CreatedBy             string        `json:"createdBy"`
	EditedBy              *string       `json:"editedBy,omitempty"`
	EditedAt              *time.Time    `json:"editedAt,omitempty"`
	ApprovedBy            *string       `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time    `json:"approvedAt,omitempty"`
	GeneratedDocumentPath *string       `json:"generatedDocumentPath,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

// DocumentWithVersions is the read model returned to callers.
type DocumentWithVersions struct {
	Document *Document          `json:"document"`
	V1       *DocumentVersion   `json:"v1,omitempty"`
	V2       *DocumentVersion   `json:"v2,omitempty"`
	Versions []*DocumentVersion `json:"versions"`
}

// WorkflowStats summarises document progress.
type WorkflowStats struct {
	TotalDocuments   int                    `json:"totalDocuments"`
	StatusBreakdown  map[WorkflowStatus]int `json:"statusBreakdown"`
	PendingApprovals int                    `json:"pendingApprovals"`
}
