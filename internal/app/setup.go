package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/sagekb/sage/db"
	"github.com/sagekb/sage/internal/chunker"
	"github.com/sagekb/sage/internal/config"
	"github.com/sagekb/sage/internal/document"
	"github.com/sagekb/sage/internal/embedding"
	"github.com/sagekb/sage/internal/extract"
	"github.com/sagekb/sage/internal/ingest"
	"github.com/sagekb/sage/internal/retrieval"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	// Process-wide cap on concurrent embedding API calls; every ingestion
	// and retrieval shares it.
	sem := semaphore.NewWeighted(int64(cfg.EmbedConcurrency))

	client, err := embedding.NewClient(embedder, sem, embedding.Config{
		Dimension: document.VectorDimension,
		BatchSize: cfg.EmbedBatchSize,
		Retry: embedding.RetryConfig{
			MaxRetries:      cfg.EmbedMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	a.Embedding = client

	store, err := document.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating document store: %w", err)
	}
	a.Store = store

	a.Registry = extract.NewRegistry()

	pipeline, err := ingest.NewPipeline(store, a.Registry, client, ingest.Config{
		Chunking: chunker.Config{
			TargetSize: cfg.ChunkTargetSize,
			Overlap:    cfg.ChunkOverlap,
			Tolerance:  cfg.ChunkTolerance,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}
	a.Pipeline = pipeline

	engine, err := retrieval.NewEngine(store, client, retrieval.Config{
		TopK:      cfg.RetrievalTopK,
		Threshold: cfg.RetrievalThreshold,
		MaxTokens: cfg.ContextMaxTokens,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retrieval engine: %w", err)
	}
	a.Engine = engine

	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default) and ollama providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit embedder registration (no auto-discovery).
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"embedder", cfg.EmbedderModel, "host", cfg.OllamaHost)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider",
			"embedder", cfg.EmbedderModel)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address (registered in provideGenkit).
		return ollama.Embedder(g, cfg.OllamaHost)
	default: // gemini
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
