package application

import (
	"context"
	"errors"
	"strings"
)

// ErrRateLimited marks a completion or embedding failure caused by the remote
// side throttling requests. Only these failures are retried.
var ErrRateLimited = errors.New("rate limited")

// Completer sends a prompt to a remote text-completion model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into fixed-dimension vectors with one shared model.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IsRateLimited recognises throttling errors, including ones from clients that
// only report the HTTP status in the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}
