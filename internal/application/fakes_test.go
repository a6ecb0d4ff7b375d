package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smart-home-bot/config"
	"smart-home-bot/internal/application"
	"smart-home-bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type completion struct {
	text string
	err  error
}

// scriptedCompleter replays completions in order and then repeats the last one.
type scriptedCompleter struct {
	mu      sync.Mutex
	script  []completion
	prompts []string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	if len(c.script) == 0 {
		return "", errors.New("no scripted completion")
	}
	next := c.script[0]
	if len(c.script) > 1 {
		c.script = c.script[1:]
	}
	return next.text, next.err
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func replying(texts ...string) *scriptedCompleter {
	c := &scriptedCompleter{}
	for _, t := range texts {
		c.script = append(c.script, completion{text: t})
	}
	return c
}

// sleepRecorder stands in for the backoff wait.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestInvoker(c application.Completer, sleep *sleepRecorder) *application.Invoker {
	cfg := application.DefaultInvokerConfig()
	if sleep == nil {
		sleep = &sleepRecorder{}
	}
	cfg.Sleep = sleep.Sleep
	return application.NewInvoker(c, cfg, nil, discardLogger())
}

// wordEmbedder is a bag-of-words embedder: one dimension per distinct word.
type wordEmbedder struct {
	mu       sync.Mutex
	index    map[string]int
	batches  [][]string
	queries  []string
	failWith error
}

const wordEmbedderDims = 256

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{index: map[string]int{}}
}

func (e *wordEmbedder) vector(text string) []float32 {
	v := make([]float32, wordEmbedderDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		i, ok := e.index[w]
		if !ok {
			i = len(e.index) % wordEmbedderDims
			e.index[w] = i
		}
		v[i]++
	}
	return v
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failWith != nil {
		return nil, e.failWith
	}
	e.batches = append(e.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failWith != nil {
		return nil, e.failWith
	}
	e.queries = append(e.queries, text)
	return e.vector(text), nil
}

type paramsUpdate struct {
	DeviceID int64
	Params   map[string]string
}

type ownedAdd struct {
	UserID int64
	Device domain.NewDevice
}

type fakeStore struct {
	mu        sync.Mutex
	devices   map[string][]domain.Device
	templates []domain.Device

	updates []paramsUpdate
	adds    []ownedAdd
	removes []int64

	devicesErr error
	writeErr   error
}

func (s *fakeStore) UserDevices(_ context.Context, userKey string) ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.devicesErr != nil {
		return nil, s.devicesErr
	}
	return append([]domain.Device(nil), s.devices[userKey]...), nil
}

func (s *fakeStore) Templates(_ context.Context) ([]domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Device(nil), s.templates...), nil
}

func (s *fakeStore) UpdateParams(_ context.Context, deviceID int64, params map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.updates = append(s.updates, paramsUpdate{DeviceID: deviceID, Params: params})
	return nil
}

func (s *fakeStore) AddOwned(_ context.Context, userID int64, device domain.NewDevice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.adds = append(s.adds, ownedAdd{UserID: userID, Device: device})
	return nil
}

func (s *fakeStore) RemoveOwned(_ context.Context, deviceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.removes = append(s.removes, deviceID)
	return nil
}

func (s *fakeStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates) + len(s.adds) + len(s.removes)
}

type fakeUsers map[string]int64

func (u fakeUsers) ResolveUser(_ context.Context, key string) (int64, bool, error) {
	id, ok := u[key]
	return id, ok, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	intents  map[domain.Intent]int
	outcomes map[string]int
	retries  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{intents: map[domain.Intent]int{}, outcomes: map[string]int{}}
}

func (m *countingMetrics) ObserveIntent(intent domain.Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent]++
}

func (m *countingMetrics) ObserveOutcome(intent domain.Intent, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[string(intent)+"/"+outcome]++
}

func (m *countingMetrics) ObserveRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func defaultVocabulary(t *testing.T) domain.Vocabulary {
	t.Helper()
	vocab, err := config.LoadVocabulary("")
	require.NoError(t, err)
	return vocab
}
