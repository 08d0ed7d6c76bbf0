package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"ytai/internal/cache"
	"ytai/internal/config"
	"ytai/internal/domain"
	"ytai/internal/embedding/hashing"
	"ytai/internal/llm/gemini"
	"ytai/internal/llm/ollama"
	"ytai/internal/llm/openai"
	"ytai/internal/models"
	"ytai/internal/service"
	"ytai/internal/store"
	"ytai/internal/tokens"
	"ytai/internal/vectorstore/memory"
	"ytai/internal/vectorstore/qdrant"
	"ytai/internal/youtube"
)

// app holds the components assembled from the configuration.
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	db      *store.DB
	svc     *service.Service
	session domain.Session
	ollama  *ollama.Client
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// providers lazily creates the model clients, since each needs different credentials.
type providers struct {
	cfg    *config.AppConfig
	openai *openai.Client
	gemini *gemini.Client
	ollama *ollama.Client
}

func (p *providers) OpenAI() (*openai.Client, error) {
	if p.openai == nil {
		c, err := openai.NewClient(openai.Config{
			BaseURL:        p.cfg.OpenAI.BaseURL,
			APIKeyEnv:      p.cfg.OpenAI.APIKeyEnv,
			EmbeddingModel: p.cfg.OpenAI.EmbeddingModel,
			Timeout:        time.Duration(p.cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		p.openai = c
	}
	return p.openai, nil
}

func (p *providers) Gemini(ctx context.Context) (*gemini.Client, error) {
	if p.gemini == nil {
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKeyEnv:      p.cfg.Gemini.APIKeyEnv,
			EmbeddingModel: p.cfg.Gemini.EmbeddingModel,
		})
		if err != nil {
			return nil, err
		}
		p.gemini = c
	}
	return p.gemini, nil
}

func (p *providers) Ollama() *ollama.Client {
	if p.ollama == nil {
		p.ollama = ollama.NewClient(ollama.Config{
			BaseURL:        p.cfg.Ollama.URL,
			EmbeddingModel: p.cfg.Ollama.EmbeddingModel,
			Timeout:        time.Duration(p.cfg.Ollama.TimeoutSecs) * time.Second,
		})
	}
	return p.ollama
}

// chat returns the chat model of provider and, for servers that report one, its context length source.
func (p *providers) chat(ctx context.Context, provider string) (domain.ChatModel, models.ContextLengthSource, error) {
	switch provider {
	case config.ProviderOpenAI:
		c, err := p.OpenAI()
		return c, nil, err
	case config.ProviderGemini:
		c, err := p.Gemini(ctx)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderOllama:
		c := p.Ollama()
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
}

func (p *providers) embedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case config.ProviderOpenAI:
		return p.OpenAI()
	case config.ProviderGemini:
		return p.Gemini(ctx)
	case config.ProviderOllama:
		return p.Ollama(), nil
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	p := &providers{cfg: cfg}

	chat, lengths, err := p.chat(ctx, cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	emb, err := p.embedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var vectors domain.VectorStore
	switch cfg.VectorStore.Type {
	case "memory":
		vectors = memory.NewStorage()
		logger.Warn("memory vector store selected, indexes are lost on exit")
	case "qdrant":
		vectors = qdrant.NewStorage(qdrant.Config{
			URL:     cfg.VectorStore.Qdrant.URL,
			APIKey:  cfg.VectorStore.Qdrant.APIKey,
			Timeout: time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	dbCfg := store.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN}
	if dbCfg.Driver == store.DriverSQLite {
		dbCfg = store.DefaultConfig(cfg.Database.DSN)
	}
	db, err := store.Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := db.InitSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var modelCache cache.ModelList = cache.NewMemory()
	if cfg.Cache.Type == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		modelCache = cache.NewRedis(rdb)
	}

	estimator := tokens.NewEstimator(tokens.WithLogger(logger), tokens.WithTokenizerFiles(cfg.Tokenizers))
	listers := map[string]service.ModelLister{config.ProviderOllama: p.Ollama()}
	if c, err := p.OpenAI(); err == nil {
		listers[config.ProviderOpenAI] = c
	}
	if p.gemini != nil {
		listers[config.ProviderGemini] = p.gemini
		a.closers = append(a.closers, p.gemini.Close)
	}

	a.svc, err = service.New(service.Config{
		Metadata: youtube.NewMetadataClient(youtube.MetadataConfig{
			Endpoint: cfg.YouTube.OEmbedURL,
			Timeout:  time.Duration(cfg.YouTube.MetadataTimeoutSecs) * time.Second,
		}),
		Transcripts: youtube.NewTranscriptClient(youtube.TranscriptConfig{
			Timeout: time.Duration(cfg.YouTube.TranscriptTimeoutSecs) * time.Second,
			Logger:  logger,
		}),
		Repository:   db,
		Vectors:      vectors,
		Embedder:     emb,
		Counter:      estimator,
		Checker:      models.NewPolicy(estimator, lengths, logger),
		Listers:      listers,
		Selectable:   cfg.LLM.AvailableModels,
		ModelCache:   modelCache,
		Languages:    cfg.YouTube.Languages,
		ProcessedDir: filepath.Join(cfg.OutputDir, "transcripts_processed"),
		Logger:       logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ollama = p.Ollama()
	a.session = domain.Session{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
		Chat:        chat,
	}
	return a, nil
}
