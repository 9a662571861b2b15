// Package extract converts uploaded document payloads (PDF, DOCX, plain
// text, Markdown) into plain text for the ingestion pipeline.
//
// Extractors are selected by MIME type through a Registry. Extraction that
// fails or yields no usable text surfaces ErrExtractionFailed; the pipeline
// records it on the document and stops.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// ErrExtractionFailed indicates text extraction failed or produced empty
// content. Check with errors.Is().
var ErrExtractionFailed = errors.New("text extraction failed")

// ErrUnsupportedMIME indicates no extractor is registered for the MIME type.
var ErrUnsupportedMIME = errors.New("unsupported MIME type")

// MIME types accepted by the document upload surface.
const (
	MIMEPDF       = "application/pdf"
	MIMEDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
)

// Extractor converts a raw payload of one format into plain text.
type Extractor interface {
	// Extract returns the plain text content of data. It returns an error
	// wrapping ErrExtractionFailed for corrupt input or empty output.
	Extract(ctx context.Context, data []byte) (string, error)
}

// Registry dispatches extraction by MIME type.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors for the
// upload allow-list: plain text, Markdown, DOCX and PDF.
func NewRegistry() *Registry {
	return &Registry{
		extractors: map[string]Extractor{
			MIMEPlainText: &PlainText{},
			MIMEMarkdown:  &Markdown{},
			MIMEDocx:      &Docx{},
			MIMEPDF:       &PDF{},
		},
	}
}

// Register adds or replaces the extractor for a MIME type.
func (r *Registry) Register(mimeType string, e Extractor) {
	r.extractors[mimeType] = e
}

// Supported reports whether a MIME type has a registered extractor.
func (r *Registry) Supported(mimeType string) bool {
	_, ok := r.extractors[mimeType]
	return ok
}

// Extract dispatches to the extractor registered for mimeType.
func (r *Registry) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	e, ok := r.extractors[mimeType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMIME, mimeType)
	}
	text, err := e.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	return text, nil
}
