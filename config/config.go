package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Store      StoreConfig      `yaml:"store"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	HTTP       HTTPConfig       `yaml:"http"`
	Matrix     MatrixConfig     `yaml:"matrix"`
	Pushover   PushoverConfig   `yaml:"pushover"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Log        LogConfig        `yaml:"log"`
}

// LLMConfig selects the completion backend. Provider is one of openai
// (any OpenAI-compatible endpoint, Groq by default), anthropic or gemini.
type LLMConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelay      string  `yaml:"initial_delay"`
	CallTimeout       string  `yaml:"call_timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbeddingsConfig selects the embedding backend: openai (remote,
// OpenAI-compatible) or fastembed (local ONNX model, needs cgo).
type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	CacheDir  string `yaml:"cache_dir"`
	MaxLength int    `yaml:"max_length"`
	CacheSize int    `yaml:"cache_size"`
}

type ResolverConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	Path         string `yaml:"path"`
	SyncInterval string `yaml:"sync_interval"`
}

type HTTPConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Addr              string `yaml:"addr"`
	AuthToken         string `yaml:"auth_token"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	ReplyTimeout      string `yaml:"reply_timeout"`
}

type MatrixConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Homeserver  string   `yaml:"homeserver"`
	UserID      string   `yaml:"user_id"`
	AccessToken string   `yaml:"access_token"`
	Rooms       []string `yaml:"rooms"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type AssistantConfig struct {
	Workers int `yaml:"workers"`
}

type VocabularyConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Provider == "openai" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.Model = "claude-sonnet-4-20250514"
		case "gemini":
			c.LLM.Model = "gemini-2.0-flash"
		default:
			c.LLM.Model = "llama-3.3-70b-versatile"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 3
	}
	if c.LLM.InitialDelay == "" {
		c.LLM.InitialDelay = "5s"
	}
	if c.LLM.CallTimeout == "" {
		c.LLM.CallTimeout = "60s"
	}
	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = "openai"
	}
	if c.Embeddings.Provider == "openai" && c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embeddings.Model == "" {
		if c.Embeddings.Provider == "fastembed" {
			c.Embeddings.Model = "BAAI/bge-small-en-v1.5"
		} else {
			c.Embeddings.Model = "text-embedding-3-small"
		}
	}
	if c.Embeddings.CacheDir == "" {
		c.Embeddings.CacheDir = "./models"
	}
	if c.Embeddings.MaxLength == 0 {
		c.Embeddings.MaxLength = 512
	}
	if c.Embeddings.CacheSize == 0 {
		c.Embeddings.CacheSize = 1024
	}
	if c.Store.Path == "" {
		c.Store.Path = "smart-home.db"
	}
	if c.Catalog.SyncInterval == "" {
		c.Catalog.SyncInterval = "5m"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RequestsPerMinute == 0 {
		c.HTTP.RequestsPerMinute = 10
	}
	if c.HTTP.ReplyTimeout == "" {
		c.HTTP.ReplyTimeout = "3m"
	}
	if c.Assistant.Workers == 0 {
		c.Assistant.Workers = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
