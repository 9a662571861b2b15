package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Embedding provider
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty for provider %q",
				ErrInvalidProvider, ProviderOllama)
		}
	default:
		return fmt.Errorf("%w: %q, must be one of: %s, %s",
			ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOllama)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// Embedding client limits
	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 250 {
		return fmt.Errorf("%w: embed_batch_size must be between 1 and 250, got %d",
			ErrInvalidEmbedding, c.EmbedBatchSize)
	}
	if c.EmbedConcurrency < 1 || c.EmbedConcurrency > 64 {
		return fmt.Errorf("%w: embed_concurrency must be between 1 and 64, got %d",
			ErrInvalidEmbedding, c.EmbedConcurrency)
	}
	if c.EmbedMaxRetries < 0 || c.EmbedMaxRetries > 10 {
		return fmt.Errorf("%w: embed_max_retries must be between 0 and 10, got %d",
			ErrInvalidEmbedding, c.EmbedMaxRetries)
	}

	// Chunking: overlap must leave forward progress within a window.
	if c.ChunkTargetSize < 200 || c.ChunkTargetSize > 100_000 {
		return fmt.Errorf("%w: chunk_target_size must be between 200 and 100000, got %d",
			ErrInvalidChunking, c.ChunkTargetSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkTargetSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_target_size), got %d",
			ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.ChunkTolerance < 0 || c.ChunkTolerance >= c.ChunkTargetSize {
		return fmt.Errorf("%w: chunk_tolerance must be in [0, chunk_target_size), got %d",
			ErrInvalidChunking, c.ChunkTolerance)
	}

	if c.MaxUploadBytes < 1 || c.MaxUploadBytes > 1<<30 {
		return fmt.Errorf("%w: max_upload_bytes must be between 1 and 1 GiB, got %d",
			ErrInvalidUploadLimit, c.MaxUploadBytes)
	}

	// Retrieval defaults
	if c.RetrievalTopK < 1 || c.RetrievalTopK > 100 {
		return fmt.Errorf("%w: retrieval_top_k must be between 1 and 100, got %d",
			ErrInvalidRetrieval, c.RetrievalTopK)
	}
	if c.RetrievalThreshold < 0 || c.RetrievalThreshold > 1 {
		return fmt.Errorf("%w: retrieval_threshold must be between 0.0 and 1.0, got %.2f",
			ErrInvalidRetrieval, c.RetrievalThreshold)
	}
	if c.ContextMaxTokens < 1 {
		return fmt.Errorf("%w: context_max_tokens must be positive, got %d",
			ErrInvalidRetrieval, c.ContextMaxTokens)
	}

	// PostgreSQL
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "sage_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	// Modern SSL modes only; allow/prefer are excluded as MITM-vulnerable.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
