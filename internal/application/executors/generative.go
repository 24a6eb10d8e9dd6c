package executors

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// GenerativeOptions tunes retry and concurrency behavior.
type GenerativeOptions struct {
	// Budget is the maximum number of in-flight requests to the
	// external service, shared across all generative nodes.
	Budget int

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Backoff is the base delay; attempt n waits Backoff * 2^n unless
	// the service asked for a specific delay.
	Backoff time.Duration

	// RequestTimeout bounds a single attempt. An attempt that hits it
	// counts as a timeout failure and is retried like one.
	RequestTimeout time.Duration

	DefaultMaxTokens   int
	DefaultTemperature float64
}

// Generative executes generative nodes against the configured
// text-generation providers.
type Generative struct {
	providers map[string]ports.TextGenerator
	opts      GenerativeOptions
	budget    chan struct{}
	logger    *zap.Logger
	metrics   ports.MetricsCollector
}

// NewGenerative creates a generative executor. providers maps provider
// names to their clients.
func NewGenerative(
	providers map[string]ports.TextGenerator,
	opts GenerativeOptions,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) *Generative {
	if opts.Budget < 1 {
		opts.Budget = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Generative{
		providers: providers,
		opts:      opts,
		budget:    make(chan struct{}, opts.Budget),
		logger:    logger,
		metrics:   metrics,
	}
}

// Kind returns the node kind this executor serves.
func (g *Generative) Kind() domain.NodeKind {
	return domain.NodeKindGenerative
}

// Execute sends the node's role and bounded context to the external
// service, retrying retryable failure classes with exponential backoff.
// An exhausted or permanent failure is a result with status error, never
// a fabricated success.
func (g *Generative) Execute(ctx context.Context, in Input) (Output, error) {
	gc := in.Node.Generative
	if gc == nil {
		return Output{}, domain.NewConfigurationError("node %s: generative node without config", in.Node.ID)
	}

	gen, ok := g.providers[gc.Provider]
	if !ok {
		return Output{}, domain.NewConfigurationError("node %s: no client for provider %q", in.Node.ID, gc.Provider)
	}

	result := domain.NodeRunResult{
		NodeID:    in.Node.ID,
		Iteration: in.Iteration,
		Provider:  gc.Provider,
		StartedAt: time.Now().UTC(),
	}

	req := ports.GenerationRequest{
		Model:       gc.Model,
		Role:        gc.Role,
		Context:     windowed(in.Context, in.Node.ContextWindow),
		MaxTokens:   gc.MaxTokens,
		Temperature: gc.Temperature,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.opts.DefaultMaxTokens
	}
	if req.Temperature == nil && g.opts.DefaultTemperature > 0 {
		req.Temperature = &g.opts.DefaultTemperature
	}

	text, err := g.generateWithRetry(ctx, in.Node.ID, gen, req)
	result.FinishedAt = time.Now().UTC()

	switch {
	case err == nil:
		result.Status = domain.ResultSuccess
		result.Text = text
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		result.Status = domain.ResultTimeout
		result.Error = err.Error()
	default:
		result.Status = domain.ResultError
		result.Error = err.Error()
	}

	return Output{Result: result}, nil
}

// generateWithRetry holds a budget slot for the whole attempt sequence
// so retries cannot multiply in-flight pressure on the service.
func (g *Generative) generateWithRetry(
	ctx context.Context,
	nodeID string,
	gen ports.TextGenerator,
	req ports.GenerationRequest,
) (string, error) {
	select {
	case g.budget <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-g.budget }()
	g.metrics.SetBudgetInUse(len(g.budget))

	var lastErr error
	for attempt := 0; attempt <= g.opts.MaxRetries; attempt++ {
		text, err := g.generateOnce(ctx, gen, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var extErr *domain.ExternalError
		if !errors.As(err, &extErr) || !extErr.Class.Retryable() {
			return "", err
		}
		if attempt == g.opts.MaxRetries {
			break
		}

		delay := g.opts.Backoff * (1 << attempt)
		if extErr.RetryAfter > 0 {
			delay = extErr.RetryAfter
		}

		g.metrics.RecordGenerativeRetry(string(extErr.Class))
		g.logger.Warn("generation attempt failed, retrying",
			zap.String("node_id", nodeID),
			zap.String("class", string(extErr.Class)),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

func (g *Generative) generateOnce(ctx context.Context, gen ports.TextGenerator, req ports.GenerationRequest) (string, error) {
	if g.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
		defer cancel()
	}
	return gen.Generate(ctx, req)
}

// windowed trims the context to the last size entries. A zero or
// negative size keeps everything the triggering edges carried.
func windowed(entries []string, size int) []string {
	if size <= 0 || len(entries) <= size {
		return entries
	}
	return entries[len(entries)-size:]
}
