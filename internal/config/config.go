// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sage/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: provider, model, batch size, retry and concurrency limits
//   - Ingest: chunking parameters and upload constraints
//   - Retrieval: top-k, similarity threshold, context token budget
//   - Storage: PostgreSQL connection (see storage.go)
//   - Server: listen address and rate limiting
//
// Sensitive values (the database password) are masked in MarshalJSON/String
// and are never logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidProvider indicates the embedding provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidChunking indicates chunking parameters are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidEmbedding indicates embedding batch/concurrency settings are out of range.
	ErrInvalidEmbedding = errors.New("invalid embedding configuration")

	// ErrInvalidRetrieval indicates retrieval defaults are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidUploadLimit indicates the upload size limit is out of range.
	ErrInvalidUploadLimit = errors.New("invalid upload size limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation to 768 via OutputDimensionality; the chunks schema uses 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxUploadBytes is the default upload size limit (20 MB).
	DefaultMaxUploadBytes int64 = 20 << 20

	// DefaultChunkTargetSize is the default chunk window in characters,
	// roughly 1000 tokens under the chars/4 heuristic.
	DefaultChunkTargetSize = 4000

	// DefaultChunkOverlap is the default trailing overlap carried into the
	// next chunk, in characters.
	DefaultChunkOverlap = 200

	// DefaultChunkTolerance is the default boundary-snap window in characters.
	DefaultChunkTolerance = 400
)

// Config stores application configuration.
// Sensitive fields are explicitly masked in MarshalJSON; when adding new
// sensitive fields, update MarshalJSON.
type Config struct {
	// Embedding provider and model
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default) or "ollama"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// Embedding client limits
	EmbedBatchSize   int `mapstructure:"embed_batch_size" json:"embed_batch_size"`
	EmbedConcurrency int `mapstructure:"embed_concurrency" json:"embed_concurrency"` // process-wide cap
	EmbedMaxRetries  int `mapstructure:"embed_max_retries" json:"embed_max_retries"`

	// Ingestion
	ChunkTargetSize int   `mapstructure:"chunk_target_size" json:"chunk_target_size"`
	ChunkOverlap    int   `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	ChunkTolerance  int   `mapstructure:"chunk_tolerance" json:"chunk_tolerance"`
	MaxUploadBytes  int64 `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`

	// Retrieval defaults (request values are clamped to these)
	RetrievalTopK      int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	RetrievalThreshold float32 `mapstructure:"retrieval_threshold" json:"retrieval_threshold"`
	ContextMaxTokens   int     `mapstructure:"context_max_tokens" json:"context_max_tokens"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	RateBurst  int    `mapstructure:"rate_burst" json:"rate_burst"` // per-IP token bucket burst
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, if set, overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Embedding defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("embed_batch_size", 32)
	viper.SetDefault("embed_concurrency", 4)
	viper.SetDefault("embed_max_retries", 3)

	// Ingestion defaults
	viper.SetDefault("chunk_target_size", DefaultChunkTargetSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("chunk_tolerance", DefaultChunkTolerance)
	viper.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)

	// Retrieval defaults
	viper.SetDefault("retrieval_top_k", 5)
	viper.SetDefault("retrieval_threshold", 0.35)
	viper.SetDefault("context_max_tokens", 2000)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sage")
	viper.SetDefault("postgres_password", "sage_dev_password")
	viper.SetDefault("postgres_db_name", "sage")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds environment variable overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; its presence is
// checked in Validate() when the gemini provider is selected.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "SAGE_PROVIDER")
	mustBind("embedder_model", "SAGE_EMBEDDER_MODEL")
	mustBind("ollama_host", "SAGE_OLLAMA_HOST")
	mustBind("listen_addr", "SAGE_LISTEN_ADDR")
	mustBind("rate_burst", "SAGE_RATE_BURST")
	mustBind("embed_concurrency", "SAGE_EMBED_CONCURRENCY")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 characters
// or fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
