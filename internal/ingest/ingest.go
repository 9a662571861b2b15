// Package ingest runs the asynchronous document processing pipeline:
// extract text, split into chunks, embed, and commit the result atomically.
//
// Each uploaded document is processed on its own goroutine detached from the
// upload request. Failures at any stage mark the document as errored with a
// human-readable message; a concurrent delete simply wins and the pipeline
// discards its work.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sagekb/sage/internal/chunker"
	"github.com/sagekb/sage/internal/document"
	"github.com/sagekb/sage/internal/extract"
)

// store is the subset of document.Store the pipeline needs.
type store interface {
	MarkError(ctx context.Context, id uuid.UUID, message string) error
	CommitChunks(ctx context.Context, id uuid.UUID, chunks []document.Chunk) error
}

// embedder is the subset of embedding.Client the pipeline needs.
type embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline processes uploaded documents in the background.
type Pipeline struct {
	store    store
	registry *extract.Registry
	embedder embedder
	chunking chunker.Config
	timeout  time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// Config configures a Pipeline.
type Config struct {
	// Chunking controls how extracted text is split.
	Chunking chunker.Config

	// Timeout bounds the processing of a single document. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds the processing of a single document, covering
// extraction and all embedding calls including retries.
const DefaultTimeout = 10 * time.Minute

// NewPipeline creates a Pipeline.
func NewPipeline(st store, registry *extract.Registry, emb embedder, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("extractor registry is required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    st,
		registry: registry,
		embedder: emb,
		chunking: cfg.Chunking,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

// Start begins processing doc's payload on a new goroutine and returns
// immediately. The provided data is owned by the pipeline from this point.
//
// The goroutine uses its own context detached from the upload request, so
// processing survives the client disconnecting. Wait blocks until all
// started work has finished.
func (p *Pipeline) Start(doc document.Document, mimeType string, data []byte) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.process(ctx, doc, mimeType, data); err != nil {
			p.logger.Error("document processing failed",
				"document_id", doc.ID,
				"assistant_id", doc.AssistantID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until all in-flight documents have finished processing.
// Used during graceful shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// process runs the full pipeline for one document. Any stage failure marks
// the document as errored; the returned error is for logging only.
func (p *Pipeline) process(ctx context.Context, doc document.Document, mimeType string, data []byte) error {
	start := time.Now()

	text, err := p.registry.Extract(ctx, data, mimeType)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Sprintf("text extraction failed: %v", err), err)
	}

	pieces := chunker.Split(text, p.chunking)
	if len(pieces) == 0 {
		err := errors.New("document contains no extractable text")
		return p.fail(ctx, doc.ID, err.Error(), err)
	}

	texts := make([]string, len(pieces))
	for i, c := range pieces {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		// No partial state: nothing was written yet, so marking the error
		// leaves the document with zero chunks.
		return p.fail(ctx, doc.ID, fmt.Sprintf("embedding failed: %v", err), err)
	}

	chunks := make([]document.Chunk, len(pieces))
	for i, c := range pieces {
		chunks[i] = document.Chunk{
			DocumentID: doc.ID,
			Index:      int32(c.Index),
			Content:    c.Content,
			TokenCount: int32(c.TokenCount),
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	if err := p.store.CommitChunks(ctx, doc.ID, chunks); err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			// Deleted while processing. The delete wins; discard quietly.
			p.logger.Info("document deleted during processing, discarding chunks",
				"document_id", doc.ID,
			)
			return nil
		}
		return p.fail(ctx, doc.ID, fmt.Sprintf("storing chunks failed: %v", err), err)
	}

	p.logger.Info("document processed",
		"document_id", doc.ID,
		"assistant_id", doc.AssistantID,
		"chunks", len(chunks),
		"elapsed", time.Since(start),
	)
	return nil
}

// fail records message on the document. If the timeout context already
// expired, marking still needs to reach the database, so it uses a short
// independent context.
func (p *Pipeline) fail(ctx context.Context, id uuid.UUID, message string, cause error) error {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := p.store.MarkError(ctx, id, message); err != nil {
		return fmt.Errorf("marking document errored: %w (original: %v)", err, cause)
	}
	return cause
}
