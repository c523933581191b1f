package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"hotelqa/internal/domain"
)

// Client sends prompts to an OpenAI-compatible chat completion endpoint.
type Client struct {
	llm         llms.Model
	model       string
	temperature float64
	streaming   bool
	logger      *zap.Logger
}

// Config configures the chat completion client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	Streaming   bool
	Timeout     time.Duration
}

// NewClient creates a chat completion client. A missing API key is reported
// as a configuration error.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, domain.ConfigurationError("openai completion", fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-1106-preview"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(key),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: t}),
	)
	if err != nil {
		return nil, domain.ConfigurationError("openai completion", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		llm:         llm,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		streaming:   cfg.Streaming,
		logger:      logger.With(zap.String("component", "openai-completion")),
	}, nil
}

// Complete sends prompt as a single user message and returns the full
// answer. With streaming enabled each fragment is passed to onChunk as it
// arrives; otherwise onChunk receives the whole answer once.
func (c *Client) Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if ce := c.logger.Check(zap.DebugLevel, "sending prompt"); ce != nil {
		ce.Write(zap.Int("prompt_tokens", llms.CountTokens(c.model, prompt)), zap.Bool("streaming", c.streaming))
	}

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.streaming {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if onChunk != nil && len(chunk) > 0 {
				onChunk(string(chunk))
			}
			return nil
		}))
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, opts...)
	if err != nil {
		c.logger.Error("completion failed", zap.Error(err))
		return "", domain.ExternalServiceError("complete", err)
	}
	if !c.streaming && onChunk != nil {
		onChunk(answer)
	}
	return answer, nil
}
