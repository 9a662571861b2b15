package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagekb/sage/internal/document"
	"github.com/sagekb/sage/internal/extract"
)

// documentStore is the subset of document.Store the handlers need.
type documentStore interface {
	Create(ctx context.Context, p document.CreateParams) (*document.Document, error)
	Get(ctx context.Context, assistantID, docID uuid.UUID) (*document.Document, error)
	List(ctx context.Context, assistantID uuid.UUID) ([]*document.Document, error)
	Delete(ctx context.Context, assistantID, docID uuid.UUID) error
}

// ingestor starts background processing for an uploaded document.
type ingestor interface {
	Start(doc document.Document, mimeType string, data []byte)
}

// documentHandler holds dependencies for document API endpoints.
type documentHandler struct {
	store          documentStore
	pipeline       ingestor
	registry       *extract.Registry
	maxUploadBytes int64
	logger         *slog.Logger
}

// upload handles POST /api/v1/assistants/{assistantID}/documents.
//
// Validation (size, MIME type, non-empty payload) happens synchronously
// before any row is created; a rejected upload leaves no trace. On success
// the document row exists with status processing, ingestion runs in the
// background, and the response is 202 Accepted.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	assistantID, ok := parseAssistantID(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusUnprocessableEntity, "file_too_large", "uploaded file exceeds the size limit", h.logger)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_multipart", "invalid multipart form", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_file", "multipart field 'file' is required", h.logger)
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		WriteError(w, http.StatusUnprocessableEntity, "file_too_large", "uploaded file exceeds the size limit", h.logger)
		return
	}

	mimeType := detectMIMEType(header.Header.Get("Content-Type"), header.Filename)
	if !h.registry.Supported(mimeType) {
		WriteError(w, http.StatusUnprocessableEntity, "unsupported_type",
			"unsupported document type: "+mimeType, h.logger)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("reading upload", "error", err, "assistant_id", assistantID)
		WriteError(w, http.StatusInternalServerError, "read_failed", "failed to read uploaded file", h.logger)
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusUnprocessableEntity, "empty_file", "uploaded file is empty", h.logger)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = header.Filename
	}

	doc, err := h.store.Create(r.Context(), document.CreateParams{
		AssistantID: assistantID,
		Name:        name,
		Filename:    header.Filename,
		MIMEType:    mimeType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		h.logger.Error("creating document", "error", err, "assistant_id", assistantID)
		WriteError(w, http.StatusInternalServerError, "create_failed", "failed to create document", h.logger)
		return
	}

	h.pipeline.Start(*doc, mimeType, data)

	WriteJSON(w, http.StatusAccepted, toDocumentItem(doc), h.logger)
}

// list handles GET /api/v1/assistants/{assistantID}/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	assistantID, ok := parseAssistantID(w, r, h.logger)
	if !ok {
		return
	}

	docs, err := h.store.List(r.Context(), assistantID)
	if err != nil {
		h.logger.Error("listing documents", "error", err, "assistant_id", assistantID)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list documents", h.logger)
		return
	}

	items := make([]documentItem, len(docs))
	for i, d := range docs {
		items[i] = toDocumentItem(d)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// get handles GET /api/v1/assistants/{assistantID}/documents/{id}.
// Clients poll this endpoint to observe ingestion progress.
func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	assistantID, ok := parseAssistantID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid document ID", h.logger)
		return
	}

	doc, err := h.store.Get(r.Context(), assistantID, id)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
			return
		}
		h.logger.Error("getting document", "error", err, "id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get document", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toDocumentItem(doc), h.logger)
}

// delete handles DELETE /api/v1/assistants/{assistantID}/documents/{id}.
// Deletion succeeds regardless of status; chunks cascade with the row, and
// an in-flight ingestion discovers the deletion at commit time and discards
// its work.
func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	assistantID, ok := parseAssistantID(w, r, h.logger)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid document ID", h.logger)
		return
	}

	if err := h.store.Delete(r.Context(), assistantID, id); err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "document not found", h.logger)
			return
		}
		h.logger.Error("deleting document", "error", err, "id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// parseAssistantID extracts and validates the {assistantID} path segment.
func parseAssistantID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("assistantID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_assistant_id", "invalid assistant ID", logger)
		return uuid.Nil, false
	}
	return id, true
}

// detectMIMEType resolves the document MIME type, preferring the declared
// Content-Type of the file part and falling back to the filename extension.
// Parameters (charset etc.) are stripped.
func detectMIMEType(contentType, filename string) string {
	if contentType != "" && contentType != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			return mt
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extract.MIMEPDF
	case ".docx":
		return extract.MIMEDocx
	case ".md", ".markdown":
		return extract.MIMEMarkdown
	case ".txt":
		return extract.MIMEPlainText
	}
	return contentType
}

// documentItem is the JSON representation of a document.
type documentItem struct {
	ID           string `json:"id"`
	AssistantID  string `json:"assistantId"`
	Name         string `json:"name"`
	Filename     string `json:"filename"`
	MIMEType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ChunksCount  int32  `json:"chunksCount"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toDocumentItem(d *document.Document) documentItem {
	return documentItem{
		ID:           d.ID.String(),
		AssistantID:  d.AssistantID.String(),
		Name:         d.Name,
		Filename:     d.Filename,
		MIMEType:     d.MIMEType,
		SizeBytes:    d.SizeBytes,
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		ChunksCount:  d.ChunksCount,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}
