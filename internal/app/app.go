// -----------------------------------------------------------------------
// Application wiring - builds the ingestion and question-answering
// pipelines from configuration and owns their lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/responsa-ai/responsa/internal/common"
	"github.com/responsa-ai/responsa/internal/interfaces"
	"github.com/responsa-ai/responsa/internal/services/chunker"
	"github.com/responsa-ai/responsa/internal/services/embeddings"
	"github.com/responsa-ai/responsa/internal/services/index"
	"github.com/responsa-ai/responsa/internal/services/ingest"
	"github.com/responsa-ai/responsa/internal/services/llm"
	"github.com/responsa-ai/responsa/internal/services/loader"
	"github.com/responsa-ai/responsa/internal/services/retriever"
	"github.com/responsa-ai/responsa/internal/services/synthesizer"
	"github.com/responsa-ai/responsa/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Ingestion pipeline
	LoaderService    interfaces.DocumentLoader
	ChunkerService   interfaces.Chunker
	EmbeddingService interfaces.EmbeddingClient
	VectorIndex      interfaces.VectorIndex
	IngestService    *ingest.Service
	Scheduler        *ingest.Scheduler

	// Question answering pipeline
	LLMProvider        interfaces.LLMProvider
	RetrieverService   interfaces.Retriever
	SynthesizerService interfaces.Synthesizer
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	documentStorage := storageManager.DocumentStorage()

	app.LoaderService = loader.NewService(&cfg.Loader, logger)
	app.ChunkerService = chunker.NewService(&cfg.Chunker, logger)

	if err := app.initEmbeddings(ctx); err != nil {
		storageManager.Close()
		return nil, err
	}

	if err := app.initIndex(ctx); err != nil {
		storageManager.Close()
		return nil, err
	}

	app.IngestService = ingest.NewService(
		app.LoaderService,
		app.ChunkerService,
		app.EmbeddingService,
		app.VectorIndex,
		documentStorage,
		&cfg.Chunker,
		logger,
	)
	app.Scheduler = ingest.NewScheduler(app.IngestService, &cfg.Processing, logger)

	app.LLMProvider = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, logger)
	app.RetrieverService = retriever.NewService(
		app.EmbeddingService,
		app.VectorIndex,
		documentStorage,
		&cfg.Retrieval,
		logger,
	)
	app.SynthesizerService = synthesizer.NewService(app.LLMProvider, &cfg.Synthesis, &cfg.LLM, logger)

	if cfg.Processing.Enabled {
		if err := app.Scheduler.Start(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	logger.Info().
		Str("index_provider", cfg.Index.Provider).
		Str("embedding_model", cfg.Embedding.Model).
		Str("llm_provider", cfg.LLM.DefaultProvider).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initEmbeddings(ctx context.Context) error {
	vectorizer, err := embeddings.NewGeminiVectorizer(
		ctx,
		a.Config.Gemini.APIKey,
		a.Config.Embedding.Model,
		a.Config.Embedding.Dimension,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	a.EmbeddingService = embeddings.NewService(vectorizer, &a.Config.Embedding, a.Logger)
	return nil
}

func (a *App) initIndex(ctx context.Context) error {
	switch a.Config.Index.Provider {
	case "memory":
		a.VectorIndex = index.NewMemoryIndex()
	default:
		a.VectorIndex = index.NewQdrantIndex(&a.Config.Index, a.Logger)
	}

	if err := a.VectorIndex.EnsureCollection(ctx, a.Config.Embedding.Dimension); err != nil {
		return fmt.Errorf("failed to ensure index collection: %w", err)
	}
	return nil
}

// Close releases application resources in reverse dependency order
func (a *App) Close() {
	if a.Scheduler != nil && a.Config.Processing.Enabled {
		a.Scheduler.Stop()
	}
	if a.LLMProvider != nil {
		if err := a.LLMProvider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM provider")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage manager")
		}
	}
	a.Logger.Debug().Msg("Application closed")
}
