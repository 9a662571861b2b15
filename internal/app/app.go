// Package app provides application initialization and dependency wiring.
//
// App is the container holding every long-lived component: the database
// pool, the Genkit runtime and embedder, the document store, the ingestion
// pipeline, and the retrieval engine. Setup builds them in dependency
// order; Close tears them down in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagekb/sage/internal/config"
	"github.com/sagekb/sage/internal/document"
	"github.com/sagekb/sage/internal/embedding"
	"github.com/sagekb/sage/internal/extract"
	"github.com/sagekb/sage/internal/ingest"
	"github.com/sagekb/sage/internal/retrieval"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store     *document.Store
	Registry  *extract.Registry
	Embedding *embedding.Client
	Pipeline  *ingest.Pipeline
	Engine    *retrieval.Engine
}

// Close gracefully shuts down all resources. In-flight ingestions are
// allowed to finish before the database pool closes so no document is
// stranded in processing.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("shutting down application")

	if a.Pipeline != nil {
		a.Pipeline.Wait()
		logger.Info("ingestion pipeline drained")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		logger.Info("database pool closed")
	}

	return nil
}
