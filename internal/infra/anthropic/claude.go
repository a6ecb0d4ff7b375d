package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"smart-home-bot/internal/application"
)

const DefaultModel = "claude-sonnet-4-20250514"

type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewClaudeClient(apiKey, model string, maxTokens int) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, maxTokens, "")
}

// NewClaudeClientWithURL points the client at baseURL, or the public API when empty.
func NewClaudeClientWithURL(apiKey, model string, maxTokens int, baseURL string) *ClaudeClient {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		// Retries belong to the application invoker.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &ClaudeClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: claude API: %v", application.ErrRateLimited, err)
		}
		return "", fmt.Errorf("claude API: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from claude")
	}

	return sb.String(), nil
}
