package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagekb/sage/internal/retrieval"
)

// retriever is the subset of retrieval.Engine the handler needs.
type retriever interface {
	Retrieve(ctx context.Context, assistantID uuid.UUID, query string, opts retrieval.Options) (retrieval.Result, error)
}

// retrieveHandler holds dependencies for the retrieval endpoint.
type retrieveHandler struct {
	engine retriever
	logger *slog.Logger
}

// retrieveRequest is the request body for POST .../retrieve.
// TopK, threshold, and maxTokens are optional; zero values use the server
// defaults.
type retrieveRequest struct {
	Query     string  `json:"query"`
	TopK      int     `json:"topK"`
	Threshold float32 `json:"threshold"`
	MaxTokens int     `json:"maxTokens"`
}

// retrieveResponse is the response body for POST .../retrieve. An empty
// knowledge base or no match above the threshold yields empty fields with
// status 200, never an error.
type retrieveResponse struct {
	Context string      `json:"context"`
	Sources []string    `json:"sources"`
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	ChunkIndex   int32   `json:"chunkIndex"`
	Content      string  `json:"content"`
	TokenCount   int32   `json:"tokenCount"`
	Similarity   float32 `json:"similarity"`
}

// retrieve handles POST /api/v1/assistants/{assistantID}/retrieve.
func (h *retrieveHandler) retrieve(w http.ResponseWriter, r *http.Request) {
	assistantID, ok := parseAssistantID(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "query must not be empty", h.logger)
		return
	}

	res, err := h.engine.Retrieve(r.Context(), assistantID, req.Query, retrieval.Options{
		TopK:      req.TopK,
		Threshold: req.Threshold,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		h.logger.Error("retrieval failed", "error", err, "assistant_id", assistantID)
		WriteError(w, http.StatusInternalServerError, "retrieval_failed", "failed to retrieve context", h.logger)
		return
	}

	matches := make([]matchItem, len(res.Matches))
	for i, m := range res.Matches {
		matches[i] = matchItem{
			DocumentID:   m.DocumentID.String(),
			DocumentName: m.DocumentName,
			ChunkIndex:   m.ChunkIndex,
			Content:      m.Content,
			TokenCount:   m.TokenCount,
			Similarity:   m.Similarity,
		}
	}
	sources := res.Sources
	if sources == nil {
		sources = []string{}
	}

	WriteJSON(w, http.StatusOK, retrieveResponse{
		Context: res.Context,
		Sources: sources,
		Matches: matches,
	}, h.logger)
}
