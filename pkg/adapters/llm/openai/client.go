// Package openai implements the text-generation port against the
// OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// Client calls the OpenAI chat completions API.
type Client struct {
	client *goopenai.Client
	logger *zap.Logger
}

// NewClient creates an OpenAI client.
func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &Client{
		client: goopenai.NewClient(apiKey),
		logger: logger,
	}, nil
}

// Generate sends the role as the system message and the context entries
// as the user message.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	chatReq := goopenai.ChatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.Role},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt(req.Context)},
		},
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.ExternalError{
			Class: domain.FailureTransient,
			Err:   fmt.Errorf("empty completion response"),
		}
	}

	c.logger.Debug("openai generation completed",
		zap.String("model", req.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("duration", time.Since(started)))

	return resp.Choices[0].Message.Content, nil
}

// classify maps transport and API failures to failure classes by HTTP
// status alone.
func classify(err error) *domain.ExternalError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ExternalError{Class: domain.FailureTimeout, Err: err}
	}

	var apiErr *goopenai.APIError
	if !errors.As(err, &apiErr) {
		return &domain.ExternalError{Class: domain.FailureTransient, Err: err}
	}

	switch {
	case apiErr.HTTPStatusCode == 429:
		return &domain.ExternalError{Class: domain.FailureRateLimited, Err: err}
	case apiErr.HTTPStatusCode == 408:
		return &domain.ExternalError{Class: domain.FailureTimeout, Err: err}
	case apiErr.HTTPStatusCode >= 500:
		return &domain.ExternalError{Class: domain.FailureTransient, Err: err}
	default:
		return &domain.ExternalError{Class: domain.FailurePermanent, Err: err}
	}
}

func userPrompt(entries []string) string {
	if len(entries) == 0 {
		return "Begin."
	}
	return strings.Join(entries, "\n\n")
}
