package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text from PDF payloads. Extraction is a library call; PDFs
// without a text layer (scans) produce no text and fail ingestion with an
// extraction error rather than an empty document.
type PDF struct{}

// Extract implements Extractor.
func (*PDF) Extract(_ context.Context, data []byte) (text string, err error) {
	// The pdf package panics on some malformed files; treat that as
	// corrupt input, not a crash.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: malformed PDF: %v", ErrExtractionFailed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid PDF: %v", ErrExtractionFailed, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting PDF text: %v", ErrExtractionFailed, err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("%w: reading PDF text: %v", ErrExtractionFailed, err)
	}

	text = strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("%w: PDF contains no extractable text", ErrExtractionFailed)
	}
	return text, nil
}
