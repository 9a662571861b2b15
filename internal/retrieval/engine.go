// Package retrieval answers queries against an assistant's knowledge base:
// it embeds the query, runs a vector similarity search over the assistant's
// ready chunks, and assembles the surviving matches into a bounded context
// block for prompt injection.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sagekb/sage/internal/document"
)

// searcher is the subset of document.Store the engine needs.
type searcher interface {
	Search(ctx context.Context, assistantID uuid.UUID, query pgvector.Vector, topK int32) ([]document.Match, error)
}

// embedder is the subset of embedding.Client the engine needs.
type embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Options bounds a retrieval request. Zero fields fall back to the
// engine's configured defaults; TopK and MaxTokens above the configured
// values are clamped down to them.
type Options struct {
	// TopK is the maximum number of matches returned.
	TopK int

	// Threshold is the minimum cosine similarity a match must reach.
	Threshold float32

	// MaxTokens bounds the assembled context block.
	MaxTokens int
}

// Config holds the engine defaults, normally sourced from configuration.
type Config struct {
	TopK      int
	Threshold float32
	MaxTokens int
}

// Result is the outcome of one retrieval request.
type Result struct {
	// Context is the assembled text block, empty when nothing matched.
	Context string

	// Matches are the surviving matches in descending similarity order.
	Matches []document.Match

	// Sources are the distinct document names contributing to Context,
	// in first-appearance order.
	Sources []string
}

// Engine performs retrieval for one query at a time. It is safe for
// concurrent use.
type Engine struct {
	store    searcher
	embedder embedder
	defaults Config
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(store searcher, emb embedder, defaults Config, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 5
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = 2000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, embedder: emb, defaults: defaults, logger: logger}, nil
}

// Retrieve embeds query and returns the assembled context for assistantID.
//
// An empty result is a normal outcome, not an error: it means nothing in
// the knowledge base was similar enough. Matches are ordered by similarity
// descending; equal similarities order by (document ID, chunk index) so
// results are deterministic across runs.
func (e *Engine) Retrieve(ctx context.Context, assistantID uuid.UUID, query string, opts Options) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("query must not be empty")
	}
	opts = e.normalize(opts)

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := e.store.Search(ctx, assistantID, pgvector.NewVector(vec), int32(opts.TopK))
	if err != nil {
		return Result{}, fmt.Errorf("searching chunks: %w", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Similarity >= opts.Threshold {
			kept = append(kept, m)
		}
	}

	res := assemble(kept, opts.MaxTokens)

	e.logger.Debug("retrieval completed",
		"assistant_id", assistantID,
		"candidates", len(matches),
		"kept", len(res.Matches),
		"sources", len(res.Sources),
	)
	return res, nil
}

// normalize fills zero fields from the configured defaults and clamps TopK
// and MaxTokens to them, so a request can narrow a search but never widen
// it past what the operator configured.
func (e *Engine) normalize(opts Options) Options {
	if opts.TopK <= 0 || opts.TopK > e.defaults.TopK {
		opts.TopK = e.defaults.TopK
	}
	if opts.Threshold <= 0 {
		opts.Threshold = e.defaults.Threshold
	}
	if opts.MaxTokens <= 0 || opts.MaxTokens > e.defaults.MaxTokens {
		opts.MaxTokens = e.defaults.MaxTokens
	}
	return opts
}
