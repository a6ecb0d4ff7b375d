// Package openai talks to OpenAI-compatible endpoints (Groq, OpenAI, TEI)
// through langchaingo.
package openai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"smart-home-bot/internal/application"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

type Completer struct {
	llm       *openai.LLM
	maxTokens int
}

func NewCompleter(apiKey, baseURL, model string, maxTokens int) (*Completer, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithToken(tokenOrPlaceholder(apiKey)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &Completer{llm: llm, maxTokens: maxTokens}, nil
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(0)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, opts...)
	if err != nil {
		return "", classify(fmt.Errorf("generating completion: %w", err))
	}
	return text, nil
}

// Embedder produces embeddings from an OpenAI-compatible /embeddings endpoint.
type Embedder struct {
	embedder *embeddings.EmbedderImpl
}

func NewEmbedder(apiKey, baseURL, model string) (*Embedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embeddings base URL required")
	}
	if model == "" {
		return nil, fmt.Errorf("embeddings model required")
	}

	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
		openai.WithToken(tokenOrPlaceholder(apiKey)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Embedder{embedder: embedder}, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, classify(fmt.Errorf("embedding documents: %w", err))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classify(fmt.Errorf("embedding query: %w", err))
	}
	return vector, nil
}

// langchaingo reports HTTP failures only as text, so throttling is
// recognised from the message and re-tagged.
func classify(err error) error {
	if application.IsRateLimited(err) {
		return fmt.Errorf("%w: %v", application.ErrRateLimited, err)
	}
	return err
}

// langchaingo refuses an empty token; local servers ignore it.
func tokenOrPlaceholder(apiKey string) string {
	if apiKey == "" {
		return "placeholder"
	}
	return apiKey
}
