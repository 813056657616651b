// Package render turns an approved RFP tree into a deliverable and stores it.
package render

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/faisal-mohamed/rfdb-new/internal/services"
	"github.com/faisal-mohamed/rfdb-new/internal/storage"
	"github.com/faisal-mohamed/rfdb-new/internal/telemetry"
	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// Format is the deliverable type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatHTML: "text/html; charset=utf-8",
}

// Service implements services.Renderer.
type Service struct {
	format        Format
	store         storage.ObjectStore
	prefix        string
	chromeTimeout time.Duration
	metrics       *telemetry.Metrics
	now           func() time.Time
}

// NewService creates a renderer producing format and storing under prefix.
func NewService(format Format, store storage.ObjectStore, prefix string, chromeTimeout time.Duration, metrics *telemetry.Metrics) (*Service, error) {
	if _, ok := contentTypes[format]; !ok {
		return nil, fmt.Errorf("unknown render format %q", format)
	}
	if metrics == nil {
		metrics = telemetry.Noop()
	}
	return &Service{
		format:        format,
		store:         store,
		prefix:        prefix,
		chromeTimeout: chromeTimeout,
		metrics:       metrics,
		now:           time.Now,
	}, nil
}

// Render produces the deliverable and returns its storage key, shaped
// {prefix}/{documentId}_{versionId}_{unixMillis}.{ext}.
func (s *Service) Render(ctx context.Context, req services.RenderRequest) (key string, err error) {
	defer func() { s.metrics.RecordRender(ctx, string(s.format), err) }()

	now := s.now()
	html, err := HTML(NewPage(req.Title, req.CustomerName, now, req.Content))
	if err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}

	var data []byte
	switch s.format {
	case FormatPDF:
		data, err = printPDF(ctx, html, s.chromeTimeout)
	case FormatDOCX:
		data, err = convertDOCX(ctx, html)
	default:
		data = []byte(html)
	}
	if err != nil {
		return "", &models.ExternalServiceError{Service: "renderer", Message: err.Error(), Err: err}
	}

	name := fmt.Sprintf("%s_%s_%d.%s", req.DocumentID, req.VersionID, now.UnixMilli(), s.format)
	return s.store.Put(ctx, path.Join(s.prefix, name), data, contentTypes[s.format])
}

func (s *Service) Discard(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

// Filename is the download name offered for a deliverable.
func Filename(title, key string) string {
	return sanitizeFilename(title) + path.Ext(key)
}

// sanitizeFilename keeps letters, digits, hyphens and underscores, turns
// spaces into hyphens and caps the length at 50.
func sanitizeFilename(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	if len(out) > 50 {
		out = out[:50]
	}
	if len(out) == 0 {
		return "document"
	}
	return string(out)
}
