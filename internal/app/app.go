package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"mailpilot/internal/config"
	"mailpilot/internal/services"
	"mailpilot/internal/store"
	"mailpilot/internal/store/primary"
	"mailpilot/internal/store/vector"
	"mailpilot/internal/triage"
)

// App owns the explicitly constructed, dependency-injected collaborators the
// commands and handlers work with. Nothing here is a process-global: tests
// build their own App with fakes.
type App struct {
	Config *config.Config

	VectorStore       store.VectorStore
	HistoryStore      store.HistoryStore
	JobClient         store.JobClient
	EmbeddingService  store.EmbeddingService
	CompletionService services.CompletionService

	RetrievalService *services.RetrievalService
	SummaryService   services.SummaryService
	IngestService    *services.IngestService
	Pipeline         *triage.Pipeline
}

// Options toggles optional subsystems so lightweight commands (e.g. load
// without --enqueue) do not require Redis.
type Options struct {
	NeedJobClient bool
	NeedHistory   bool
}

func NewApp(cfg *config.Config, opts Options) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	if err := app.initVectorStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initEmbeddingService(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initCompletionService(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if opts.NeedHistory {
		if err := app.initHistoryStore(ctx); err != nil {
			app.cleanupPartialInit()
			return nil, err
		}
	}
	if opts.NeedJobClient {
		if err := app.initJobClient(); err != nil {
			app.cleanupPartialInit()
			return nil, err
		}
	}
	app.initCoreServices()

	log.Debug("Application initialization complete.")
	return app, nil
}

// Close releases held connections; safe to call after partial init.
func (a *App) Close() {
	a.cleanupPartialInit()
}

// --- Private Helper Methods ---

func (a *App) initVectorStore(ctx context.Context) error {
	if a.Config.Database.DSN == "" {
		return fmt.Errorf("database DSN (database.dsn / DATABASE_URL) is required but not configured")
	}
	vs, err := vector.NewStore(ctx, a.Config.Database.DSN)
	if err != nil {
		return fmt.Errorf("init postgres vector store: %w", err)
	}
	a.VectorStore = vs
	return nil
}

func (a *App) initHistoryStore(ctx context.Context) error {
	hs, err := primary.NewHistoryStore(ctx, a.Config.Database.DSN)
	if err != nil {
		return fmt.Errorf("init history store: %w", err)
	}
	a.HistoryStore = hs
	return nil
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(a.Config.Redis.Address, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initEmbeddingService() error {
	cfg := a.Config
	var providers []services.EmbeddingProvider

	switch cfg.Embedding.Provider {
	case "openai":
		p, err := services.NewOpenAIProvider(cfg.Embedding.OpenaiApiKey, cfg.Embedding.Model)
		if err != nil {
			return fmt.Errorf("init OpenAI embedding provider: %w", err)
		}
		providers = append(providers, p)
	case "gemini":
		p, err := services.NewGeminiProvider(cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModel, "")
		if err != nil {
			return fmt.Errorf("init Gemini embedding provider: %w", err)
		}
		providers = append(providers, p)
	default:
		return fmt.Errorf("unknown embedding provider configured: %s", cfg.Embedding.Provider)
	}

	retryStrategy := &services.SimpleRetryStrategy{MaxAttempts: 3, BaseDelayMs: 200}
	embeddingService, err := services.NewFailoverEmbeddingService(providers, retryStrategy)
	if err != nil {
		return fmt.Errorf("init embedding service: %w", err)
	}
	a.EmbeddingService = embeddingService
	return nil
}

func (a *App) initCompletionService() error {
	cfg := a.Config
	if !cfg.Generation.Enabled {
		log.Info("Generation is disabled, replies will use the deterministic fallback.")
		return nil
	}

	switch cfg.Generation.Provider {
	case "openai":
		a.CompletionService = services.NewOpenAICompletionProvider(cfg.Embedding.OpenaiApiKey, cfg.Generation.Model)
	case "gemini":
		completer, err := services.NewGeminiProvider(cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModel, cfg.Generation.Model)
		if err != nil {
			return fmt.Errorf("init Gemini completion provider: %w", err)
		}
		a.CompletionService = completer
	default:
		return fmt.Errorf("unknown generation provider configured: %s", cfg.Generation.Provider)
	}
	return nil
}

func (a *App) initCoreServices() {
	cfg := a.Config

	a.RetrievalService = services.NewRetrievalService(a.EmbeddingService, a.VectorStore, cfg.Triage.TopK)
	a.IngestService = services.NewIngestService(a.EmbeddingService, a.VectorStore,
		cfg.Ingest.BatchSize, time.Duration(cfg.Ingest.BatchDelayMs)*time.Millisecond)

	if a.CompletionService != nil {
		a.SummaryService = services.NewCompletionSummaryService(a.CompletionService, cfg.Generation.SummaryMaxTokens)
	} else {
		a.SummaryService = services.NewNoopSummaryService()
	}

	a.Pipeline = triage.NewPipeline(triage.PipelineDeps{
		Retriever:           a.RetrievalService,
		Summarizer:          a.SummaryService,
		Synthesizer:         triage.NewSynthesizer(a.CompletionService, cfg.Generation.ResponseMaxTokens),
		History:             a.HistoryStore,
		EmbeddingModel:      a.EmbeddingService.ModelName(),
		ConfidenceThreshold: cfg.Triage.ConfidenceThreshold,
		CallTimeout:         time.Duration(cfg.Triage.CallTimeoutMs) * time.Millisecond,
	})
}

func (a *App) cleanupPartialInit() {
	if a.JobClient != nil {
		a.JobClient.Close()
	}
	if a.VectorStore != nil {
		a.VectorStore.Close()
	}
	if a.HistoryStore != nil {
		a.HistoryStore.Close()
	}
	if cs, ok := a.CompletionService.(interface{ Close() error }); ok && cs != nil {
		if err := cs.Close(); err != nil {
			log.Warnf("Error closing completion service: %v", err)
		}
	}
}
