package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/metrics"
)

// ErrChatService wraps chat-provider failures.
var ErrChatService = errors.New("chat service error")

// Chat issues chat-completion requests.
type Chat struct {
	client *openai.Client
	model  string
	stats  *Stats
	logger *zap.Logger
}

// ChatConfig holds chat provider settings.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Stats   *Stats
	Logger  *zap.Logger
}

// NewChat creates a chat client.
func NewChat(cfg ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Chat{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		stats:  cfg.Stats,
		logger: cfg.Logger,
	}
}

// Complete sends a system+user message pair and returns the first choice.
func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("chat", c.model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("chat", c.model, "api_error").Inc()
		return "", fmt.Errorf("chat completion failed: %v: %w", err, ErrChatService)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues("chat", c.model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("chat", c.model, "empty_response").Inc()
		return "", fmt.Errorf("empty chat response: %w", ErrChatService)
	}

	metrics.LLMRequestsTotal.WithLabelValues("chat", c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("chat", c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues("chat", c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues("chat", c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.LLMTokensTotal.WithLabelValues("chat", c.model, "total").Add(float64(resp.Usage.TotalTokens))
	}
	if c.stats != nil {
		c.stats.Record(duration.Milliseconds())
	}

	c.logger.Debug("chat completion",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", duration))

	return resp.Choices[0].Message.Content, nil
}
