//go:build !cgo

package fastembed

import (
	"context"
	"errors"
)

var errNotAvailable = errors.New("fastembed: not available in builds without cgo, use the openai embeddings provider")

type Embedder struct{}

func NewEmbedder(_ Config) (*Embedder, error) {
	return nil, errNotAvailable
}

func (e *Embedder) EmbedDocuments(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errNotAvailable
}

func (e *Embedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, errNotAvailable
}

func (e *Embedder) Close() error {
	return nil
}
