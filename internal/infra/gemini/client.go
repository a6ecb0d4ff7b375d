package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smart-home-bot/internal/application"
	"smart-home-bot/internal/retry"
)

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	retry      retry.Config
}

func NewClient(apiKey, model string, maxTokens int) *Client {
	return NewClientWithURL(apiKey, model, maxTokens, "https://generativelanguage.googleapis.com/v1beta")
}

func NewClientWithURL(apiKey, model string, maxTokens int, baseURL string) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}

	policy := retry.DefaultConfig()
	policy.Retryable = isTransient

	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		retry:      policy,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text string `json:"text"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini API error %d: %s", e.code, e.body)
}

// isTransient retries server-side failures here; throttling is left to the
// application invoker so its backoff schedule applies.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code != http.StatusTooManyRequests && retry.IsRetryableHTTPStatus(se.code)
	}
	return false
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: prompt}},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: c.maxTokens,
			Temperature:     0,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var result response
	retryErr := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode, body: string(respBody)}
		}

		if err = json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		return nil
	})

	if retryErr != nil {
		var se *statusError
		if errors.As(retryErr, &se) && se.code == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", application.ErrRateLimited, retryErr)
		}
		return "", retryErr
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
