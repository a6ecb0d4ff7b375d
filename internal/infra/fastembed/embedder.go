//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

var models = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// Embedder runs a local ONNX embedding model. The model is not safe for
// concurrent inference, so calls are serialized.
type Embedder struct {
	mu    sync.Mutex
	model *fastembed.FlagEmbedding
}

func NewEmbedder(cfg Config) (*Embedder, error) {
	model, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Model)
	}

	cfg = cfg.withDefaults()
	showProgress := false

	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &Embedder{model: flag}, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vectors, err := e.model.PassageEmbed(texts, batchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding %d passages: %w", len(texts), err)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vector, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Destroy()
}
