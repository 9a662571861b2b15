package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// FakeEmbedder implements ai.Embedder with deterministic vectors derived
// from the input text, so similarity relationships are stable across runs:
// identical texts produce identical vectors.
//
// Err and FailFirst make failure behavior scriptable for retry tests.
type FakeEmbedder struct {
	// Dimension of generated vectors.
	Dimension int

	// Err is returned on every call when non-nil (after FailFirst is spent).
	Err error

	// FailFirst makes the first N calls return Err, then succeed. Requires
	// Err to be set.
	FailFirst int

	mu    sync.Mutex
	calls int
}

func (f *FakeEmbedder) Name() string { return "fake-embedder" }

func (f *FakeEmbedder) Register(r api.Registry) {}

// Calls returns how many times Embed was invoked.
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.Err != nil && (f.FailFirst == 0 || call <= f.FailFirst) {
		return nil, f.Err
	}

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		embeddings[i] = &ai.Embedding{Embedding: f.vector(text)}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

// vector produces a unit-norm vector seeded from the text's FNV hash.
func (f *FakeEmbedder) vector(text string) []float32 {
	dim := f.Dimension
	if dim <= 0 {
		dim = 768
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence deterministic per seed.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
