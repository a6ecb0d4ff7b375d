package application

import (
	"context"

	"smart-home-bot/internal/domain"
)

// Notifier pushes a short message about performed device changes.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// Metrics records pipeline outcomes.
type Metrics interface {
	ObserveIntent(intent domain.Intent)
	ObserveOutcome(intent domain.Intent, outcome string)
	ObserveRetry()
}

type NoopMetrics struct{}

func (NoopMetrics) ObserveIntent(domain.Intent)          {}
func (NoopMetrics) ObserveOutcome(domain.Intent, string) {}
func (NoopMetrics) ObserveRetry()                        {}
