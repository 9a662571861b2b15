package chunker

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "empty", in: "", want: 0},
		{name: "one char", in: "a", want: 1},
		{name: "four chars", in: "abcd", want: 1},
		{name: "five chars", in: "abcde", want: 2},
		{name: "eight chars", in: "abcdefgh", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := EstimateTokens(tt.in); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\n\n\t \n"} {
		if got := Split(in, Config{}); got != nil {
			t.Errorf("Split(%q) = %d chunks, want none", in, len(got))
		}
	}
}

func TestSplitShortText(t *testing.T) {
	t.Parallel()

	text := "a short document that fits in one chunk"
	chunks := Split(text, Config{TargetSize: 4000})

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != text {
		t.Errorf("content = %q, want full text", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].TokenCount != EstimateTokens(text) {
		t.Errorf("token count = %d, want %d", chunks[0].TokenCount, EstimateTokens(text))
	}
}

func TestSplitLongText(t *testing.T) {
	t.Parallel()

	// 12000 chars with no boundaries: hard cuts at exactly 4000.
	text := strings.Repeat("x", 12000)
	chunks := Split(text, Config{TargetSize: 4000})

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if len(c.Content) != 4000 {
			t.Errorf("chunk %d has %d chars, want 4000", i, len(c.Content))
		}
	}
}

func TestSplitContiguousIndices(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for range 200 {
		b.WriteString("Sentences of reasonable length fill the paragraph. ")
	}
	chunks := Split(b.String(), Config{TargetSize: 500, Overlap: 50, Tolerance: 100})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d, want contiguous from 0", i, c.Index)
		}
		if c.Content == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestSplitParagraphBoundary(t *testing.T) {
	t.Parallel()

	first := strings.Repeat("a", 90)
	second := strings.Repeat("b", 200)
	text := first + "\n\n" + second

	chunks := Split(text, Config{TargetSize: 100, Tolerance: 50})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, "\n\n") {
		t.Errorf("first chunk should end at the paragraph break, got %q tail", chunks[0].Content[len(chunks[0].Content)-5:])
	}
	if strings.Contains(chunks[0].Content, "b") {
		t.Error("first chunk leaked past the paragraph boundary")
	}
}

func TestSplitSentenceBoundary(t *testing.T) {
	t.Parallel()

	text := "First sentence ends here. " + strings.Repeat("c", 200)
	chunks := Split(text, Config{TargetSize: 40, Tolerance: 30})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(strings.TrimRight(chunks[0].Content, " "), "here.") {
		t.Errorf("first chunk should end at the sentence, got %q", chunks[0].Content)
	}
}

func TestSplitOverlap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("y", 1000)
	chunks := Split(text, Config{TargetSize: 400, Overlap: 100})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}

	// The next chunk starts Overlap characters before the previous cut, so
	// its prefix must equal the previous chunk's suffix.
	prevTail := chunks[0].Content[len(chunks[0].Content)-100:]
	if !strings.HasPrefix(chunks[1].Content, prevTail) {
		t.Error("second chunk should start with the first chunk's trailing overlap")
	}
}

func TestSplitNeverSplitsRunes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("héllo wörld ", 500)
	chunks := Split(text, Config{TargetSize: 333, Overlap: 37})

	for i, c := range chunks {
		for _, r := range c.Content {
			if r == '�' {
				t.Fatalf("chunk %d contains a replacement rune: multi-byte character was split", i)
			}
		}
	}
}

func TestSplitNearWindowOverlapAdvances(t *testing.T) {
	t.Parallel()

	// Overlap one short of the window on multi-byte text: the overlap
	// offset lands mid-rune, and alignment pulls it back onto the previous
	// start. The scan must drop the overlap and keep moving instead of
	// reproducing the same window forever.
	text := strings.Repeat("é", 300)
	chunks := Split(text, Config{TargetSize: 200, Overlap: 199})

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	total := 0
	for i, c := range chunks {
		if c.Content == "" {
			t.Fatalf("chunk %d is empty", i)
		}
		total += len(c.Content)
	}
	if total != len(text) {
		t.Errorf("chunks cover %d bytes, want %d", total, len(text))
	}
}

func TestSplitTinyWindowMultiByte(t *testing.T) {
	t.Parallel()

	// A window smaller than one rune still has to make progress.
	chunks := Split(strings.Repeat("é", 5), Config{TargetSize: 1})

	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	for i, c := range chunks {
		if c.Content != "é" {
			t.Errorf("chunk %d = %q, want one rune", i, c.Content)
		}
	}
}

func TestNormalizeConfig(t *testing.T) {
	t.Parallel()

	cfg := normalize(Config{})
	if cfg.TargetSize != DefaultTargetSize {
		t.Errorf("TargetSize = %d, want default %d", cfg.TargetSize, DefaultTargetSize)
	}

	// Overlap larger than target is clamped to zero rather than stalling.
	cfg = normalize(Config{TargetSize: 100, Overlap: 200})
	if cfg.Overlap != 0 {
		t.Errorf("Overlap = %d, want 0 when it exceeds the target", cfg.Overlap)
	}
}
