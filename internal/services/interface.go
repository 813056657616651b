package services

import (
	"context"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/faisal-mohamed/rfdb-new/pkg/rfptree"
)

// ExtractionRequest is sent to the extraction service. PriorTree carries the
// completed V1 content when refining into V2.
type ExtractionRequest struct {
	DocumentID  string             `json:"documentId"`
	FileName    string             `json:"fileName"`
	MimeType    string             `json:"mimeType"`
	FileContent []byte             `json:"fileContent"`
	VersionType models.VersionType `json:"versionType"`
	PriorTree   *rfptree.Tree      `json:"priorTree,omitempty"`
}

// ExtractionResult is a successful or failed extraction. Raw holds the
// service's response body for provenance.
type ExtractionResult struct {
	Success   bool
	RequestID string
	Data      rfptree.Tree
	Error     string
	Raw       []byte
}

// ExtractionClient calls the external extraction service.
type ExtractionClient interface {
	// Process extracts an RFP tree from the request's file. A non-nil error
	// means the call itself failed; a result with Success false means the
	// service reported a failure.
	Process(ctx context.Context, req ExtractionRequest) (*ExtractionResult, error)
}

// Renderer turns an approved tree into a deliverable and returns the path it
// was stored under.
type Renderer interface {
	Render(ctx context.Context, doc RenderRequest) (string, error)
	// Discard removes a deliverable that was never recorded.
	Discard(ctx context.Context, path string) error
}

// RenderRequest is what a Renderer needs to produce a deliverable.
type RenderRequest struct {
	DocumentID   string
	VersionID    string
	Title        string
	CustomerName string
	Content      rfptree.Tree
}

// Logger is the subset of *logging.Logger the services use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
