// Package anthropic implements the text-generation port against the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// Client calls the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	logger *zap.Logger
}

// NewClient creates an Anthropic client.
func NewClient(apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}, nil
}

// Generate sends the role as the system prompt and the context entries
// as the user turn, and returns the concatenated text blocks.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.Role},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req.Context))),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	started := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	c.logger.Debug("anthropic generation completed",
		zap.String("model", req.Model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("duration", time.Since(started)))

	return sb.String(), nil
}

// classify maps transport and API failures to failure classes. Only
// HTTP status decides; message text is never scraped.
func classify(err error) *domain.ExternalError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ExternalError{Class: domain.FailureTimeout, Err: err}
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		// Transport-level failure with no HTTP status.
		return &domain.ExternalError{Class: domain.FailureTransient, Err: err}
	}

	switch {
	case apiErr.StatusCode == 429:
		return &domain.ExternalError{
			Class:      domain.FailureRateLimited,
			RetryAfter: retryAfter(apiErr),
			Err:        err,
		}
	case apiErr.StatusCode == 408:
		return &domain.ExternalError{Class: domain.FailureTimeout, Err: err}
	case apiErr.StatusCode >= 500:
		return &domain.ExternalError{Class: domain.FailureTransient, Err: err}
	default:
		return &domain.ExternalError{Class: domain.FailurePermanent, Err: err}
	}
}

// retryAfter reads the delay the service asked for, when present.
func retryAfter(apiErr *anthropic.Error) time.Duration {
	if apiErr.Response == nil {
		return 0
	}
	header := apiErr.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func userPrompt(entries []string) string {
	if len(entries) == 0 {
		return "Begin."
	}
	return strings.Join(entries, "\n\n")
}
