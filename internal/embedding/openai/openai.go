package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"hotelqa/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
// A missing API key is reported as a configuration error.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.ConfigurationError("openai embedder", fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(key),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: t}),
	)
	if err != nil {
		return nil, domain.ConfigurationError("openai embedder", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, domain.ConfigurationError("openai embedder", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		embedder: emb,
		logger:   logger.With(zap.String("component", "openai-embedder"), zap.String("model", cfg.Model)),
	}, nil
}

// Embed returns an embedding vector for the given text. Every call is a
// fresh request; failures are returned as external service errors.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	c.logger.Debug("embedding text", zap.Int("length", len(text)))
	v, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		c.logger.Error("failed to generate embedding", zap.Error(err))
		return nil, domain.ExternalServiceError("embed", err)
	}
	if len(v) == 0 {
		return nil, domain.ExternalServiceError("embed", errors.New("empty embedding"))
	}
	return v, nil
}
