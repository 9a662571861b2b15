package document

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/sagekb/sage/internal/log"
)

// testChunk builds a chunk with a valid-dimension embedding.
func testChunk(index int32, content string) Chunk {
	vec := make([]float32, VectorDimension)
	vec[0] = 1
	return Chunk{
		Index:      index,
		Content:    content,
		TokenCount: int32(len(content) / 4),
		Embedding:  pgvector.NewVector(vec),
	}
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusProcessing, StatusReady, StatusError} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("pending").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	if StatusProcessing.Terminal() {
		t.Error("processing is not terminal")
	}
	if !StatusReady.Terminal() || !StatusError.Terminal() {
		t.Error("ready and error are terminal")
	}
}

// commitValidationStore bypasses NewStore's pool check: the validation under
// test runs before any query is issued.
func commitValidationStore() *Store {
	return &Store{logger: log.NewNop()}
}

func TestCommitChunksRejectsEmptySet(t *testing.T) {
	t.Parallel()

	s := commitValidationStore()
	if err := s.CommitChunks(t.Context(), uuid.New(), nil); err == nil {
		t.Error("empty chunk set must be rejected")
	}
}

func TestCommitChunksRejectsNonContiguousIndices(t *testing.T) {
	t.Parallel()

	s := commitValidationStore()
	chunks := []Chunk{testChunk(0, "a"), testChunk(2, "b")}
	err := s.CommitChunks(t.Context(), uuid.New(), chunks)
	if !errors.Is(err, errNonContiguous) {
		t.Errorf("got %v, want errNonContiguous", err)
	}
}

func TestCommitChunksRejectsDimensionMismatch(t *testing.T) {
	t.Parallel()

	s := commitValidationStore()
	bad := testChunk(0, "a")
	bad.Embedding = pgvector.NewVector(make([]float32, 16))
	err := s.CommitChunks(t.Context(), uuid.New(), []Chunk{bad})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

func TestSearchRejectsWrongQueryDimension(t *testing.T) {
	t.Parallel()

	s := commitValidationStore()
	_, err := s.Search(t.Context(), uuid.New(), pgvector.NewVector(make([]float32, 3)), 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}
