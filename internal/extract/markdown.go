package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Markdown extracts text/markdown payloads, stripping formatting syntax so
// embeddings see prose rather than markup.
type Markdown struct{}

var (
	mdCodeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode   = regexp.MustCompile("`[^`]+`")
	mdImage        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote   = regexp.MustCompile(`(?m)^>\s*`)
	mdRule         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarker   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	mdMultiNewline = regexp.MustCompile(`\n{3,}`)
)

// Extract implements Extractor.
func (*Markdown) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrExtractionFailed)
	}

	text := stripMarkdown(normalizeNewlines(string(data)))
	if text == "" {
		return "", fmt.Errorf("%w: document contains no text", ErrExtractionFailed)
	}
	return text, nil
}

// stripMarkdown removes common Markdown formatting. Headings, list items and
// blockquotes keep their text; code blocks and images are dropped entirely.
func stripMarkdown(content string) string {
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")

	// Emphasis markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = mdMultiNewline.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
