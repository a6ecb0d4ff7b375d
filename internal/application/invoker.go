package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"smart-home-bot/internal/retry"
)

// InvokerConfig bounds every model call made by the pipeline.
type InvokerConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// CallTimeout limits a single attempt. Zero disables the limit.
	CallTimeout time.Duration
	// RequestsPerSecond paces outgoing calls. Zero disables pacing.
	RequestsPerSecond float64
	// Sleep replaces the backoff wait, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		CallTimeout:  60 * time.Second,
	}
}

// Invoker is the single choke point for completion calls. It retries
// throttled calls with doubling delays and reports every other failure as an
// empty result.
type Invoker struct {
	completer Completer
	cfg       InvokerConfig
	limiter   *rate.Limiter
	metrics   Metrics
	logger    *slog.Logger
}

func NewInvoker(completer Completer, cfg InvokerConfig, metrics Metrics, logger *slog.Logger) *Invoker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 5 * time.Second
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Invoker{
		completer: completer,
		cfg:       cfg,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logger,
	}
}

// Invoke returns the trimmed completion for prompt, or "" when no completion
// could be obtained. Callers must treat "" as "no structured result".
func (i *Invoker) Invoke(ctx context.Context, prompt string) string {
	var result string

	policy := retry.Config{
		MaxAttempts:  i.cfg.MaxAttempts,
		InitialDelay: i.cfg.InitialDelay,
		MaxDelay:     i.cfg.MaxDelay,
		Multiplier:   2.0,
		Retryable:    IsRateLimited,
		Sleep:        i.cfg.Sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			i.metrics.ObserveRetry()
			i.logger.Info("completion rate limited, retrying",
				"attempt", attempt,
				"max_attempts", i.cfg.MaxAttempts,
				"delay", delay,
				"error", err,
			)
		},
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		text, err := i.attempt(ctx, prompt)
		if err != nil {
			return err
		}
		result = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		if IsRateLimited(err) {
			i.logger.Error("completion attempts exhausted, returning empty result",
				"attempts", i.cfg.MaxAttempts,
				"error", err,
			)
		} else {
			i.logger.Error("completion failed", "error", err)
		}
		return ""
	}

	return result
}

func (i *Invoker) attempt(ctx context.Context, prompt string) (string, error) {
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	if i.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.CallTimeout)
		defer cancel()
	}

	text, err := i.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completing prompt: %w", err)
	}
	return text, nil
}
