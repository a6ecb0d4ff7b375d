package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"smart-home-bot/config"
	"smart-home-bot/internal/application"
	"smart-home-bot/internal/infra/anthropic"
	"smart-home-bot/internal/infra/catalog"
	"smart-home-bot/internal/infra/fastembed"
	"smart-home-bot/internal/infra/gemini"
	"smart-home-bot/internal/infra/openai"
	"smart-home-bot/internal/infra/sqlite"
)

// app holds the pipeline shared by serve and ask.
type app struct {
	store       *sqlite.Store
	registry    *catalog.Registry
	interpreter *application.Interpreter
	closers     []io.Closer
}

func (a *app) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	return nil
}

func buildApp(ctx context.Context, cfg *config.Config, metrics application.Metrics, logger *slog.Logger) (*app, error) {
	store, err := sqlite.Open(cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a := &app{store: store, closers: []io.Closer{store}}

	if err := seedCatalog(ctx, store, cfg.Catalog.Path, logger); err != nil {
		a.Close()
		return nil, err
	}

	vocab, err := config.LoadVocabulary(cfg.Vocabulary.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading vocabulary: %w", err)
	}

	completer, err := newCompleter(cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder, err := newEmbedder(cfg.Embeddings)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := embedder.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	invoker := application.NewInvoker(completer, application.InvokerConfig{
		MaxAttempts:       cfg.LLM.MaxAttempts,
		InitialDelay:      parseDuration(logger, "llm.initial_delay", cfg.LLM.InitialDelay, 5*time.Second),
		CallTimeout:       parseDuration(logger, "llm.call_timeout", cfg.LLM.CallTimeout, 60*time.Second),
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, metrics, logger)

	extractor, err := application.NewExtractor(invoker, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	resolver, err := application.NewResolver(embedder, application.ResolverConfig{
		CacheSize:     cfg.Embeddings.CacheSize,
		MinSimilarity: cfg.Resolver.MinSimilarity,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = catalog.NewRegistry(store, logger)
	a.registry.OnSync(resolver.Warm)

	a.interpreter = application.NewInterpreter(
		application.NewClassifier(vocab),
		extractor,
		resolver,
		invoker,
		store,
		a.registry,
		store,
		vocab.Replies,
		metrics,
		logger,
	)
	return a, nil
}

func seedCatalog(ctx context.Context, store *sqlite.Store, path string, logger *slog.Logger) error {
	templates, err := config.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	added, err := store.SeedTemplates(ctx, templates)
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	if added > 0 {
		logger.Info("seeded device templates", "added", added)
	}
	return nil
}

func newCompleter(cfg config.LLMConfig) (application.Completer, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewCompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
	case "anthropic":
		if cfg.BaseURL != "" {
			return anthropic.NewClaudeClientWithURL(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL), nil
		}
		return anthropic.NewClaudeClient(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "gemini":
		if cfg.BaseURL != "" {
			return gemini.NewClientWithURL(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.BaseURL), nil
		}
		return gemini.NewClient(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newEmbedder(cfg config.EmbeddingsConfig) (application.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "fastembed":
		return fastembed.NewEmbedder(fastembed.Config{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxLength,
		})
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}
