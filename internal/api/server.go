// Package api exposes the document and retrieval pipeline over a JSON HTTP
// API: document upload/status/deletion per assistant, a retrieval endpoint
// for the chat loop, and health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagekb/sage/internal/extract"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger         *slog.Logger
	Store          documentStore     // Required
	Pipeline       ingestor          // Required
	Engine         retriever         // Required
	Registry       *extract.Registry // Required
	Pool           *pgxpool.Pool     // Optional: nil disables pool stats in /ready
	MaxUploadBytes int64             // Required: upload size cap in bytes
	TrustProxy     bool              // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst      int               // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingestion pipeline is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("retrieval engine is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("extractor registry is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, errors.New("max upload bytes must be positive")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dh := &documentHandler{
		store:          cfg.Store,
		pipeline:       cfg.Pipeline,
		registry:       cfg.Registry,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
	}

	rh := &retrieveHandler{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()

	// Document lifecycle
	mux.HandleFunc("POST /api/v1/assistants/{assistantID}/documents", dh.upload)
	mux.HandleFunc("GET /api/v1/assistants/{assistantID}/documents", dh.list)
	mux.HandleFunc("GET /api/v1/assistants/{assistantID}/documents/{id}", dh.get)
	mux.HandleFunc("DELETE /api/v1/assistants/{assistantID}/documents/{id}", dh.delete)

	// Retrieval
	mux.HandleFunc("POST /api/v1/assistants/{assistantID}/retrieve", rh.retrieve)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes live outside the middleware stack so probes are never
	// rate limited or logged per request.
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
