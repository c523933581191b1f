package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hotelqa/internal/domain"
)

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	OpenAIConfig `yaml:",inline"`
}

// CompletionConfig configures the chat completion model.
type CompletionConfig struct {
	OpenAIConfig `yaml:",inline"`
	Temperature  float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// DisableStreaming asks for the whole answer in one response instead of
	// a token stream.
	DisableStreaming bool `yaml:"disable_streaming"`
}

// StoreConfig holds vector search settings that are not connection parameters.
type StoreConfig struct {
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs" validate:"gt=0"`
	SearchTimeoutSecs  int    `yaml:"search_timeout_secs" validate:"gte=0"`
	EmbeddingKey       string `yaml:"embedding_key" validate:"required"`
	TextKey            string `yaml:"text_key" validate:"required"`
	TopK               int    `yaml:"top_k" validate:"gt=0"`
}

// IngestConfig configures how review files are chunked and loaded.
type IngestConfig struct {
	SentencesPerChunk int     `yaml:"sentences_per_chunk" validate:"gt=0"`
	OverlapSentences  int     `yaml:"overlap_sentences" validate:"gte=0,ltfield=SentencesPerChunk"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// LogConfig configures the log file and level.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// AppConfig is the root settings file structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Completion CompletionConfig `yaml:"completion"`
	Store      StoreConfig      `yaml:"store"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Log        LogConfig        `yaml:"log"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints on a loaded config.
func (c *AppConfig) Validate() error {
	return validate.Struct(c)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/hotelqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/hotelqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hotelqa", "config.yaml"), nil
}

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultAPIKeyEnv      = "OPENAI_API_KEY"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultChatModel      = "gpt-4-1106-preview"
	// DefaultTopK is how many snippets reach the prompt when top_k is unset.
	DefaultTopK = domain.DefaultTopK
)

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	applyOpenAIDefaults(&cfg.Embedder.OpenAIConfig, defaultEmbeddingModel)
	applyOpenAIDefaults(&cfg.Completion.OpenAIConfig, defaultChatModel)
	if cfg.Store.ConnectTimeoutSecs == 0 {
		cfg.Store.ConnectTimeoutSecs = 5
	}
	if cfg.Store.SearchTimeoutSecs == 0 {
		cfg.Store.SearchTimeoutSecs = 30
	}
	if cfg.Store.EmbeddingKey == "" {
		cfg.Store.EmbeddingKey = "embedding"
	}
	if cfg.Store.TextKey == "" {
		cfg.Store.TextKey = "review"
	}
	if cfg.Store.TopK == 0 {
		cfg.Store.TopK = DefaultTopK
	}
	if cfg.Ingest.SentencesPerChunk == 0 {
		cfg.Ingest.SentencesPerChunk = 5
		if cfg.Ingest.OverlapSentences == 0 {
			cfg.Ingest.OverlapSentences = 1
		}
	}
	if cfg.Ingest.RequestsPerSecond == 0 {
		cfg.Ingest.RequestsPerSecond = 5
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "hotelqa.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
}
