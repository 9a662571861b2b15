// Package document persists knowledge-base documents and their embedded
// chunks in PostgreSQL + pgvector, and serves assistant-scoped similarity
// search over them.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// documentCols is the standard SELECT column list for scanDocument.
const documentCols = `id, assistant_id, name, filename, mime_type, size_bytes,
	status, error_message, chunks_count, created_at, updated_at`

// Store manages documents and chunks backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines. Search never
// observes a partially ingested document: chunk rows and the ready flip
// are committed in a single transaction.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a document Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// CreateParams are the upload-time attributes of a new document.
type CreateParams struct {
	AssistantID uuid.UUID
	Name        string
	Filename    string
	MIMEType    string
	SizeBytes   int64
}

// Create inserts a new document row in the processing state and returns it.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (id, assistant_id, name, filename, mime_type, size_bytes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+documentCols,
		uuid.New(), p.AssistantID, p.Name, p.Filename, p.MIMEType, p.SizeBytes, StatusProcessing)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.logger.Debug("created document",
		"id", doc.ID, "assistant_id", doc.AssistantID, "name", doc.Name)
	return doc, nil
}

// Get retrieves a document by ID, scoped to the owning assistant.
func (s *Store) Get(ctx context.Context, assistantID, docID uuid.UUID) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+documentCols+`
		FROM documents
		WHERE id = $1 AND assistant_id = $2`,
		docID, assistantID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("getting document %s: %w", docID, err)
	}
	return doc, nil
}

// List returns all documents owned by an assistant, newest first.
func (s *Store) List(ctx context.Context, assistantID uuid.UUID) ([]*Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentCols+`
		FROM documents
		WHERE assistant_id = $1
		ORDER BY created_at DESC, id`,
		assistantID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document and, via ON DELETE CASCADE, all of its chunks.
// The delete is unconditional on the document ID: if an ingestion for this
// document is still in flight, its final commit re-checks existence and
// discards its results, so delete always wins the race.
func (s *Store) Delete(ctx context.Context, assistantID, docID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM documents
		WHERE id = $1 AND assistant_id = $2`,
		docID, assistantID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	s.logger.Debug("deleted document", "id", docID, "assistant_id", assistantID)
	return nil
}

// MarkError transitions a processing document to the error state with a
// descriptive message. Already-deleted documents are not an error here:
// the ingestion simply loses the race and there is nothing to record.
func (s *Store) MarkError(ctx context.Context, docID uuid.UUID, msg string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		docID, StatusError, msg, StatusProcessing)
	if err != nil {
		return fmt.Errorf("marking document %s failed: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("mark error skipped, document gone or terminal", "id", docID)
	}
	return nil
}

// CommitChunks atomically persists the complete chunk set of a document and
// flips its status to ready. Readers either see the document processing with
// zero chunks or ready with all of them; there is no intermediate state.
//
// The transaction locks the document row first. If the row is gone
// (concurrent delete) it returns ErrDocumentNotFound and persists nothing;
// if the document already left the processing state it returns
// ErrNotProcessing. Chunk indices must be contiguous from 0 and every
// embedding must match VectorDimension.
func (s *Store) CommitChunks(ctx context.Context, docID uuid.UUID, chunks []Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("commit of empty chunk set for document %s", docID)
	}
	for i, c := range chunks {
		if c.Index != int32(i) {
			return fmt.Errorf("chunk %d has index %d: %w", i, c.Index, errNonContiguous)
		}
		if int32(len(c.Embedding.Slice())) != VectorDimension {
			return fmt.Errorf("chunk %d has %d components, want %d: %w",
				i, len(c.Embedding.Slice()), VectorDimension, ErrDimensionMismatch)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	var status Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM documents WHERE id = $1 FOR UPDATE`,
		docID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("locking document %s: %w", docID, err)
	}
	if status != StatusProcessing {
		return fmt.Errorf("document %s has status %q: %w", docID, status, ErrNotProcessing)
	}

	for i := range chunks {
		c := &chunks[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.DocumentID = docID
		if _, err := tx.Exec(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, content, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocumentID, c.Index, c.Content, c.TokenCount, c.Embedding); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Index, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE documents
		SET status = $2, chunks_count = $3, error_message = '', updated_at = now()
		WHERE id = $1`,
		docID, StatusReady, int32(len(chunks))); err != nil {
		return fmt.Errorf("marking document %s ready: %w", docID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunks for document %s: %w", docID, err)
	}

	s.logger.Debug("committed chunks", "document_id", docID, "count", len(chunks))
	return nil
}

var errNonContiguous = errors.New("chunk indices not contiguous from 0")

// Search returns the topK chunks most similar to queryVec among chunks that
// belong to ready documents owned by assistantID, ordered by cosine
// similarity descending with (document_id, chunk_index) as a deterministic
// tie-break.
//
// Scoping is enforced in the query itself, not as a post-filter, so results
// can never cross the assistant boundary and half-ingested documents
// (status processing or error) are invisible regardless of chunk rows.
func (s *Store) Search(ctx context.Context, assistantID uuid.UUID, queryVec pgvector.Vector, topK int32) ([]Match, error) {
	if int32(len(queryVec.Slice())) != VectorDimension {
		return nil, fmt.Errorf("query vector has %d components, want %d: %w",
			len(queryVec.Slice()), VectorDimension, ErrDimensionMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.name, c.chunk_index, c.content, c.token_count,
		       1 - (c.embedding <=> $2) AS similarity
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.assistant_id = $1 AND d.status = $3
		ORDER BY c.embedding <=> $2, d.id, c.chunk_index
		LIMIT $4`,
		assistantID, queryVec, StatusReady, topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.DocumentID, &m.DocumentName, &m.ChunkIndex,
			&m.Content, &m.TokenCount, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return matches, nil
}

// Chunks returns all chunk rows of a document ordered by index.
func (s *Store) Chunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, content, token_count, embedding
		FROM chunks
		WHERE document_id = $1
		ORDER BY chunk_index`,
		docID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content,
			&c.TokenCount, &c.Embedding); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	return chunks, nil
}

// scanDocument scans a document row from the documentCols column list.
func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	if err := row.Scan(&d.ID, &d.AssistantID, &d.Name, &d.Filename, &d.MIMEType,
		&d.SizeBytes, &d.Status, &d.ErrorMessage, &d.ChunksCount,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
