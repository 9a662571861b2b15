package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// VectorDimension is the fixed dimensionality of chunk embeddings.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality; the chunks table schema declares
// vector(768) and both must change together.
const VectorDimension int32 = 768

// Status is the ingestion state of a document.
//
// processing is the only non-terminal state: every document eventually
// moves to ready or error, and only the ingestion pipeline performs
// that transition.
type Status string

const (
	// StatusProcessing means ingestion is in flight; the document has no
	// searchable chunks yet.
	StatusProcessing Status = "processing"

	// StatusReady means ingestion completed and exactly ChunksCount chunk
	// rows exist for the document.
	StatusReady Status = "ready"

	// StatusError means ingestion failed terminally; ErrorMessage explains
	// why. Re-ingestion requires a new upload.
	StatusError Status = "error"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal ingestion state.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Document is an uploaded knowledge-base document owned by one assistant.
// Chunks are searchable only while Status is ready.
type Document struct {
	ID           uuid.UUID
	AssistantID  uuid.UUID
	Name         string // display name, shown as the source label in context
	Filename     string // original upload filename
	MIMEType     string
	SizeBytes    int64
	Status       Status
	ErrorMessage string // non-empty only when Status is error
	ChunksCount  int32  // denormalized; authoritative count is the chunk rows
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is one bounded slice of a document's extracted text together with
// its embedding. Chunks are immutable: written in bulk by the ingestion
// pipeline and removed only by cascading document deletion.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int32 // 0-based position in the source document, contiguous
	Content    string
	TokenCount int32
	Embedding  pgvector.Vector
}

// Match is a search hit: a chunk plus its cosine similarity to the query
// and the owning document's identity for labeling and tie-breaking.
type Match struct {
	DocumentID   uuid.UUID
	DocumentName string
	ChunkIndex   int32
	Content      string
	TokenCount   int32
	Similarity   float32
}
