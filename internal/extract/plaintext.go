package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlainText extracts text/plain payloads. UTF-8 is required; invalid bytes
// are treated as corrupt input rather than silently replaced.
type PlainText struct{}

// Extract implements Extractor.
func (*PlainText) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrExtractionFailed)
	}

	text := normalizeNewlines(string(data))
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document contains no text", ErrExtractionFailed)
	}
	return text, nil
}

// normalizeNewlines converts CRLF and lone CR line endings to LF so the
// chunker's paragraph detection sees a single newline convention.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
