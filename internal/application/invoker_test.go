package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smart-home-bot/internal/application"
)

func TestInvokerRetriesRateLimitThenSucceeds(t *testing.T) {
	completer := &scriptedCompleter{script: []completion{
		{err: application.ErrRateLimited},
		{err: fmt.Errorf("API returned unexpected status code: 429")},
		{text: "  {\"ok\": true}\n"},
	}}
	sleep := &sleepRecorder{}
	metrics := newCountingMetrics()

	cfg := application.DefaultInvokerConfig()
	cfg.Sleep = sleep.Sleep
	inv := application.NewInvoker(completer, cfg, metrics, discardLogger())

	got := inv.Invoke(context.Background(), "prompt")

	assert.Equal(t, `{"ok": true}`, got)
	assert.Equal(t, 3, completer.calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleep.delays)
	assert.Equal(t, 2, metrics.retries)
}

func TestInvokerNonRetryableFailureReturnsEmptyWithoutSleeping(t *testing.T) {
	completer := &scriptedCompleter{script: []completion{{err: errors.New("invalid api key")}}}
	sleep := &sleepRecorder{}

	got := newTestInvoker(completer, sleep).Invoke(context.Background(), "prompt")

	assert.Empty(t, got)
	assert.Equal(t, 1, completer.calls())
	assert.Empty(t, sleep.delays)
}

func TestInvokerExhaustsAttempts(t *testing.T) {
	completer := &scriptedCompleter{script: []completion{{err: errors.New("Too Many Requests")}}}
	sleep := &sleepRecorder{}

	got := newTestInvoker(completer, sleep).Invoke(context.Background(), "prompt")

	assert.Empty(t, got)
	assert.Equal(t, 3, completer.calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleep.delays)
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInvokerCallTimeout(t *testing.T) {
	cfg := application.DefaultInvokerConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	sleep := &sleepRecorder{}
	cfg.Sleep = sleep.Sleep
	inv := application.NewInvoker(blockingCompleter{}, cfg, nil, discardLogger())

	start := time.Now()
	got := inv.Invoke(context.Background(), "prompt")

	assert.Empty(t, got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, sleep.delays)
}

func TestInvokerPacesCalls(t *testing.T) {
	cfg := application.DefaultInvokerConfig()
	cfg.RequestsPerSecond = 20
	inv := application.NewInvoker(replying("a"), cfg, nil, discardLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		assert.Equal(t, "a", inv.Invoke(context.Background(), "prompt"))
	}

	// burst of one: the second and third calls each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{application.ErrRateLimited, true},
		{fmt.Errorf("calling model: %w", application.ErrRateLimited), true},
		{errors.New("status 429"), true},
		{errors.New("too many requests"), true},
		{errors.New("status 500"), false},
		{context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, application.IsRateLimited(tt.err), "error %v", tt.err)
	}
}
