package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-home-bot/internal/application"
	"smart-home-bot/internal/domain"
)

type mockSource struct {
	name     string
	messages []application.Utterance
	index    int
	started  bool
	stopped  bool
}

func (m *mockSource) Start(_ context.Context) error { m.started = true; return nil }
func (m *mockSource) Stop() error                   { m.stopped = true; return nil }
func (m *mockSource) Name() string                  { return m.name }

func (m *mockSource) Next(_ context.Context) (application.Utterance, error) {
	if m.index >= len(m.messages) {
		return application.Utterance{}, application.ErrSourceClosed
	}
	u := m.messages[m.index]
	m.index++
	return u, nil
}

type mockHandler struct {
	mu      sync.Mutex
	results map[string]application.Result
	seen    []string
}

func (m *mockHandler) Handle(_ context.Context, text, userKey string) application.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, userKey+":"+text)
	if res, ok := m.results[text]; ok {
		return res
	}
	return application.Result{Intent: domain.IntentChat, Reply: "ok"}
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

type replyLog struct {
	mu      sync.Mutex
	replies []string
}

func (r *replyLog) reply(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return nil
}

func TestAssistantRepliesAndNotifiesMutations(t *testing.T) {
	log := &replyLog{}
	source := &mockSource{name: "mock", messages: []application.Utterance{
		{UserKey: "alice", Text: "turn off the kitchen light", Reply: log.reply},
		{UserKey: "alice", Text: "   ", Reply: log.reply},
		{UserKey: "alice", Text: "hello", Reply: log.reply},
	}}
	handler := &mockHandler{results: map[string]application.Result{
		"turn off the kitchen light": {
			Intent:    domain.IntentUpdate,
			Reply:     "Device kitchen light updated: condition = OFF",
			Mutations: []string{"kitchen light: condition = OFF"},
		},
	}}
	notifier := &mockNotifier{}

	assistant := application.NewAssistant([]application.MessageSource{source}, handler, notifier, 1, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, assistant.Run(ctx))

	assert.True(t, source.started)
	assert.True(t, source.stopped)
	assert.Equal(t, []string{"alice:turn off the kitchen light", "alice:hello"}, handler.seen)
	assert.Equal(t, []string{"Device kitchen light updated: condition = OFF", "ok"}, log.replies)
	assert.Equal(t, []string{"kitchen light: condition = OFF"}, notifier.messages)
}

func TestAssistantFansInSources(t *testing.T) {
	log := &replyLog{}
	first := &mockSource{name: "http", messages: []application.Utterance{
		{UserKey: "a", Text: "one", Reply: log.reply},
		{UserKey: "a", Text: "two", Reply: log.reply},
	}}
	second := &mockSource{name: "matrix", messages: []application.Utterance{
		{UserKey: "b", Text: "three", Reply: log.reply},
	}}
	handler := &mockHandler{}

	assistant := application.NewAssistant([]application.MessageSource{first, second}, handler, nil, 3, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, assistant.Run(ctx))

	assert.ElementsMatch(t, []string{"a:one", "a:two", "b:three"}, handler.seen)
	assert.Len(t, log.replies, 3)
}

type blockingSource struct{ mockSource }

func (b *blockingSource) Next(ctx context.Context) (application.Utterance, error) {
	<-ctx.Done()
	return application.Utterance{}, ctx.Err()
}

func TestAssistantStopsOnCancel(t *testing.T) {
	source := &blockingSource{mockSource{name: "blocking"}}
	assistant := application.NewAssistant([]application.MessageSource{source}, &mockHandler{}, nil, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- assistant.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("assistant did not stop")
	}
	assert.True(t, source.stopped)
}

func TestAssistantRequiresSource(t *testing.T) {
	assistant := application.NewAssistant(nil, &mockHandler{}, nil, 1, discardLogger())

	assert.Error(t, assistant.Run(context.Background()))
}
