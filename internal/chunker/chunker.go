// Package chunker splits extracted document text into ordered, bounded-size
// chunks for embedding.
//
// Splitting works on character windows of roughly TargetSize. When a
// paragraph or sentence boundary exists within the tolerance window around
// the target, the chunk is cut there instead of mid-word; otherwise it falls
// back to a hard cut. An optional overlap duplicates the trailing slice of
// each chunk at the start of the next one to preserve cross-boundary context.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Config controls the splitting behavior. Zero values fall back to the
// package defaults.
type Config struct {
	// TargetSize is the approximate chunk window in characters.
	TargetSize int

	// Overlap is the number of trailing characters of chunk i duplicated at
	// the start of chunk i+1. Must be smaller than TargetSize.
	Overlap int

	// Tolerance is how far back from the target a paragraph/sentence
	// boundary may be and still win over a hard cut.
	Tolerance int
}

// Defaults used when Config fields are zero or out of range.
const (
	DefaultTargetSize = 4000
	DefaultOverlap    = 200
	DefaultTolerance  = 400
)

// Chunk is one split result. Index is the 0-based position in the source
// text; indices are contiguous with no gaps.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
}

// EstimateTokens approximates the token count of s without invoking a
// tokenizer, using the common chars/4 heuristic (rounded up).
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// Split splits text into ordered chunks. Empty or whitespace-only input
// produces zero chunks; the ingestion pipeline treats that as an extraction
// failure, not a valid empty document.
func Split(text string, cfg Config) []Chunk {
	cfg = normalize(cfg)

	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		rest := text[start:]
		if strings.TrimSpace(rest) == "" {
			break
		}

		var content string
		cut := start + cfg.TargetSize
		if cut >= len(text) {
			content = rest
			cut = len(text)
		} else {
			cut = snapBoundary(text, start, cut, cfg.Tolerance)
			if cut <= start {
				// Tiny windows on multi-byte text can collapse the cut
				// back to start; take one full rune to keep moving.
				_, n := utf8.DecodeRuneInString(rest)
				cut = start + n
			}
			content = text[start:cut]
		}

		chunks = append(chunks, Chunk{
			Content:    content,
			Index:      len(chunks),
			TokenCount: EstimateTokens(content),
		})

		if cut == len(text) {
			break
		}

		// Align before the stall check: on multi-byte text the rune
		// adjustment can move next back onto start even when the raw
		// offset was past it.
		next := alignRune(text, cut-cfg.Overlap)
		if next <= start {
			// Overlap would stall the scan; drop it for this step.
			next = cut
		}
		start = next
	}

	return chunks
}

// normalize applies defaults and clamps inconsistent values.
func normalize(cfg Config) Config {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = DefaultTargetSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.TargetSize {
		cfg.Overlap = 0
	}
	if cfg.Tolerance < 0 || cfg.Tolerance >= cfg.TargetSize {
		cfg.Tolerance = 0
	}
	return cfg
}

// snapBoundary picks the cut position for a chunk starting at start with an
// ideal end at target. It prefers, in order: the last paragraph break, the
// last sentence end, and the last whitespace within [target-tolerance,
// target]. Without any candidate it hard-cuts at target, adjusted to a rune
// boundary so multi-byte characters are never split.
func snapBoundary(text string, start, target, tolerance int) int {
	lo := target - tolerance
	if lo < start+1 {
		lo = start + 1
	}
	window := text[lo:target]

	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return lo + i + 2
	}
	if i := lastSentenceEnd(window); i >= 0 {
		return lo + i
	}
	if i := strings.LastIndexFunc(window, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n'
	}); i >= 0 {
		return lo + i + 1
	}

	return alignRune(text, target)
}

// lastSentenceEnd returns the position just past the last sentence-ending
// punctuation followed by whitespace in s, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ' ' && s[i] != '\n' {
			continue
		}
		switch s[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return -1
}

// alignRune moves pos back to the nearest UTF-8 rune start.
func alignRune(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
