// Package pushover sends device-change notifications to a phone.
package pushover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smart-home-bot/internal/retry"
)

const DefaultURL = "https://api.pushover.net/1/messages.json"

type Client struct {
	token      string
	userKey    string
	endpoint   string
	httpClient *http.Client
	retry      retry.Config
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, DefaultURL)
}

func NewClientWithURL(token, userKey, endpoint string) *Client {
	policy := retry.DefaultConfig()
	policy.Retryable = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return retry.IsRetryableHTTPStatus(se.code)
		}
		return true
	}

	return &Client{
		token:      token,
		userKey:    userKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      policy,
	}
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "pushover error: " + e.status
}

// Notify is a no-op when the client has no credentials.
func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" || message == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("message", message)
	data.Set("title", "Smart Home")
	body := data.Encode()

	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode, status: resp.Status}
		}
		return nil
	})
}
