package application_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-home-bot/internal/application"
	"smart-home-bot/internal/domain"
	"smart-home-bot/internal/infra/catalog"
	"smart-home-bot/internal/infra/sqlite"
)

// The full pipeline against a real store: one source, one worker, scripted model.
func TestIntegration_CreateThenUpdate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "home.db"), discardLogger())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.SeedTemplates(ctx, []domain.Device{
		{Name: "Light", Params: map[string]string{"condition": "OFF", "brightness": "100"}},
		{Name: "Kettle", Params: map[string]string{"condition": "OFF", "temperature": "100"}},
	})
	require.NoError(t, err)
	userID, err := store.EnsureUser(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, store.LinkSession(ctx, "@alice:home.lan", userID))

	completer := replying(
		`{"name": "Morning Kettle", "device_id": "2", "params": {"temperature": 90}}`,
		`{"device": "Morning Kettle", "command": "condition", "value": "ON"}`,
	)
	invoker := newTestInvoker(completer, nil)
	extractor, err := application.NewExtractor(invoker, discardLogger())
	require.NoError(t, err)
	embedder := newWordEmbedder()
	resolver := newTestResolver(t, embedder, application.ResolverConfig{})

	registry := catalog.NewRegistry(store, discardLogger())
	registry.OnSync(resolver.Warm)
	require.NoError(t, registry.Sync(ctx))

	vocab := defaultVocabulary(t)
	interp := application.NewInterpreter(
		application.NewClassifier(vocab),
		extractor,
		resolver,
		invoker,
		store,
		registry,
		store,
		vocab.Replies,
		nil,
		discardLogger(),
	)

	log := &replyLog{}
	source := &mockSource{name: "chat", messages: []application.Utterance{
		{UserKey: "@alice:home.lan", Text: "add a kettle called Morning Kettle", Reply: log.reply},
		{UserKey: "@alice:home.lan", Text: "turn on the morning kettle", Reply: log.reply},
	}}
	notifier := &mockNotifier{}

	assistant := application.NewAssistant([]application.MessageSource{source}, interp, notifier, 1, discardLogger())
	require.NoError(t, assistant.Run(ctx))

	assert.Equal(t, []string{
		"Added new device: Morning Kettle",
		"Device Morning Kettle updated: condition = ON",
	}, log.replies)
	assert.Equal(t, []string{
		"added Morning Kettle",
		"Morning Kettle: condition = ON",
	}, notifier.messages)

	devices, err := store.UserDevices(ctx, "@alice:home.lan")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Morning Kettle", devices[0].Name)
	assert.Equal(t, map[string]string{"condition": "ON", "temperature": "90"}, devices[0].Params)

	// Template descriptions were embedded once at sync and served from cache afterwards.
	require.NotEmpty(t, embedder.batches)
	assert.ElementsMatch(t, []string{
		"Light brightness:100 condition:OFF",
		"Kettle condition:OFF temperature:100",
	}, embedder.batches[0])
}
