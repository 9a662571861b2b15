package document

import "errors"

// Sentinel errors for document store operations.
// Check with errors.Is().
var (
	// ErrDocumentNotFound indicates the requested document does not exist.
	// CommitChunks also returns it when the document was deleted while its
	// ingestion was in flight; the pipeline discards its results in that case.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNotProcessing indicates a lifecycle transition was attempted on a
	// document that already reached a terminal state.
	ErrNotProcessing = errors.New("document is not processing")

	// ErrDimensionMismatch indicates an embedding vector does not match the
	// schema's fixed dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
