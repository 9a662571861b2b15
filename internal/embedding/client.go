// Package embedding wraps the Genkit embedder behind a batching, retrying
// client with a process-wide concurrency cap.
//
// The external embedding API is rate limited, so every call holds a permit
// from a shared semaphore that is created once at process start and injected
// here; concurrent ingestions of different documents all draw from the same
// pool. Transient failures retry with exponential backoff; exhaustion
// surfaces a typed *Error wrapping ErrEmbeddingFailed.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"
)

// ErrEmbeddingFailed indicates the embedding API failed after exhausting
// retries. Check with errors.Is().
var ErrEmbeddingFailed = errors.New("embedding failed")

// Error carries the failure detail of an exhausted embedding call.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return ErrEmbeddingFailed }

// Config configures the embedding client.
type Config struct {
	// Dimension is the fixed vector dimensionality requested from the model
	// and validated on every response.
	Dimension int32

	// BatchSize is the maximum number of texts per API call.
	BatchSize int

	// Retry controls exponential backoff for transient failures.
	Retry RetryConfig
}

// Client is a batching embedding client. It is safe for concurrent use.
type Client struct {
	embedder ai.Embedder
	sem      *semaphore.Weighted
	cfg      Config
	logger   *slog.Logger
}

// NewClient creates an embedding Client.
//
// sem is the process-wide concurrency cap shared by all ingestions; it is
// required so the cap cannot be silently bypassed by a caller that forgets
// to pass one.
func NewClient(embedder ai.Embedder, sem *semaphore.Weighted, cfg Config, logger *slog.Logger) (*Client, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if sem == nil {
		return nil, fmt.Errorf("semaphore is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{embedder: embedder, sem: sem, cfg: cfg, logger: logger}, nil
}

// EmbedText embeds a single text, typically a retrieval query.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts and returns one vector per input, in input order.
// Inputs are split into batches of at most BatchSize; batches run in
// parallel, each holding a permit from the shared semaphore. The result is
// all-or-nothing: any batch failing after retries fails the whole call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		g.Go(func() error {
			batch, err := c.embedOne(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

// embedOne performs a single batched API call with retry, holding a
// semaphore permit for the duration of each attempt set.
func (c *Client) embedOne(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring embedding permit: %w", err)
	}
	defer c.sem.Release(1)

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	dim := c.cfg.Dimension
	req := &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	}

	resp, err := c.executeWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, &Error{Attempts: 1, Err: fmt.Errorf(
			"got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))}
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if int32(len(e.Embedding)) != c.cfg.Dimension {
			return nil, &Error{Attempts: 1, Err: fmt.Errorf(
				"embedding %d has %d components, want %d", i, len(e.Embedding), c.cfg.Dimension)}
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}
