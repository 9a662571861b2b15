package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// validConfig returns a configuration that passes Validate. The ollama
// provider avoids the GEMINI_API_KEY environment dependency.
func validConfig() *Config {
	return &Config{
		Provider:           ProviderOllama,
		EmbedderModel:      "nomic-embed-text",
		OllamaHost:         "http://localhost:11434",
		EmbedBatchSize:     32,
		EmbedConcurrency:   4,
		EmbedMaxRetries:    3,
		ChunkTargetSize:    DefaultChunkTargetSize,
		ChunkOverlap:       DefaultChunkOverlap,
		ChunkTolerance:     DefaultChunkTolerance,
		MaxUploadBytes:     DefaultMaxUploadBytes,
		RetrievalTopK:      5,
		RetrievalThreshold: 0.35,
		ContextMaxTokens:   2000,
		PostgresHost:       "localhost",
		PostgresPort:       5432,
		PostgresUser:       "sage",
		PostgresPassword:   "secret-password",
		PostgresDBName:     "sage",
		PostgresSSLMode:    "disable",
		ListenAddr:         "127.0.0.1:8080",
		RateBurst:          60,
	}
}

func TestValidateValid(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()

	var c *Config
	if err := c.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("got %v, want ErrConfigNil", err)
	}
}

func TestValidateGeminiRequiresAPIKey(t *testing.T) {
	c := validConfig()
	c.Provider = ProviderGemini

	t.Setenv("GEMINI_API_KEY", "")
	if err := c.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("got %v, want ErrMissingAPIKey", err)
	}

	t.Setenv("GEMINI_API_KEY", "test-key")
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error with API key set: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "openai" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "ollama without host",
			mutate:  func(c *Config) { c.OllamaHost = "" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "batch size zero",
			mutate:  func(c *Config) { c.EmbedBatchSize = 0 },
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "batch size too large",
			mutate:  func(c *Config) { c.EmbedBatchSize = 251 },
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "concurrency zero",
			mutate:  func(c *Config) { c.EmbedConcurrency = 0 },
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.EmbedMaxRetries = -1 },
			wantErr: ErrInvalidEmbedding,
		},
		{
			name:    "chunk target too small",
			mutate:  func(c *Config) { c.ChunkTargetSize = 100 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap not below target",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkTargetSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "tolerance not below target",
			mutate:  func(c *Config) { c.ChunkTolerance = c.ChunkTargetSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "upload limit zero",
			mutate:  func(c *Config) { c.MaxUploadBytes = 0 },
			wantErr: ErrInvalidUploadLimit,
		},
		{
			name:    "upload limit above 1GiB",
			mutate:  func(c *Config) { c.MaxUploadBytes = 2 << 30 },
			wantErr: ErrInvalidUploadLimit,
		},
		{
			name:    "top-k zero",
			mutate:  func(c *Config) { c.RetrievalTopK = 0 },
			wantErr: ErrInvalidRetrieval,
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.RetrievalThreshold = 1.5 },
			wantErr: ErrInvalidRetrieval,
		},
		{
			name:    "context budget zero",
			mutate:  func(c *Config) { c.ContextMaxTokens = 0 },
			wantErr: ErrInvalidRetrieval,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "postgres port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "empty password",
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "legacy ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short fully masked", in: "pass", want: maskedValue},
		{name: "exactly eight", in: "12345678", want: maskedValue},
		{name: "long keeps edges", in: "super-secret-pw", want: "su<" + maskedValue + ">pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := maskSecret(tt.in); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.PostgresPassword = "very-secret-password"

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "very-secret-password") {
		t.Error("marshaled config leaks the postgres password")
	}

	if s := c.String(); strings.Contains(s, "very-secret-password") {
		t.Error("String() leaks the postgres password")
	}
}

func TestPostgresConnectionStrings(t *testing.T) {
	t.Parallel()

	c := validConfig()

	dsn := c.PostgresConnectionString()
	for _, part := range []string{"host=localhost", "port=5432", "user=sage", "dbname=sage", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}

	url := c.PostgresURL()
	if !strings.HasPrefix(url, "postgres://") {
		t.Errorf("URL %q should use postgres scheme", url)
	}
	if !strings.Contains(url, "sslmode=disable") {
		t.Errorf("URL %q missing sslmode", url)
	}
}
