package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, "5s", cfg.LLM.InitialDelay)
	assert.Equal(t, "60s", cfg.LLM.CallTimeout)
	assert.Equal(t, 1, cfg.Assistant.Workers)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Zero(t, cfg.Resolver.MinSimilarity)
}

func TestParseProviderSpecificModel(t *testing.T) {
	cfg, err := Parse([]byte("llm:\n  provider: anthropic\n"))
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.BaseURL)
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("SMART_HOME_TEST_KEY", "secret-key")

	cfg, err := Parse([]byte("llm:\n  api_key: ${SMART_HOME_TEST_KEY}\n"))
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadVocabularyBuiltin(t *testing.T) {
	vocab, err := LoadVocabulary("")
	require.NoError(t, err)

	assert.Equal(t, 1, vocab.Version)
	assert.Contains(t, vocab.Create, "добавь")
	assert.Contains(t, vocab.Delete, "удали")
	assert.Contains(t, vocab.Update, "включи")
	assert.Contains(t, vocab.GroupMarkers, " и ")
	assert.NotEmpty(t, vocab.Replies.NotRecognized)
	assert.NotEmpty(t, vocab.Replies.ChatUnavailable)
}

func TestLoadVocabularyCustomKeepsBuiltinReplies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	data := "version: 2\ncreate: [erstelle]\ndelete: [lösche]\nupdate: [schalte]\nreplies:\n  deleted: \"%s entfernt\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)

	assert.Equal(t, 2, vocab.Version)
	assert.Equal(t, []string{"erstelle"}, vocab.Create)
	assert.Equal(t, "%s entfernt", vocab.Replies.Deleted)
	assert.NotEmpty(t, vocab.Replies.NotRecognized)
}

func TestLoadVocabularyRejectsEmptyLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ncreate: [add]\n"), 0o600))

	_, err := LoadVocabulary(path)
	assert.Error(t, err)
}

func TestLoadCatalogBuiltin(t *testing.T) {
	templates, err := LoadCatalog("")
	require.NoError(t, err)
	require.NotEmpty(t, templates)

	for _, tpl := range templates {
		assert.NotEmpty(t, tpl.Name)
		assert.Zero(t, tpl.ID)
		assert.True(t, tpl.HasParam("condition"), "template %s has no condition", tpl.Name)
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "templates:\n  - name: Lamp\n  - name: Lamp\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := LoadCatalog(path)
	assert.Error(t, err)
}
