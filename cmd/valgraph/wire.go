package main

import (
	"github.com/valgraph/valgraph/internal/application/executors"
	"github.com/valgraph/valgraph/internal/valuation"
	"github.com/valgraph/valgraph/pkg/adapters/llm"
	"github.com/valgraph/valgraph/pkg/ports"
)

// buildGenerators creates a text-generation client for every provider
// with a configured API key. A workflow naming a provider without a key
// fails as a configuration error when its node first executes.
func buildGenerators() (map[string]ports.TextGenerator, error) {
	generators := make(map[string]ports.TextGenerator)

	if cfg.LLM.AnthropicAPIKey != "" {
		client, err := llm.NewClient(&llm.Config{
			Provider: "anthropic",
			APIKey:   cfg.LLM.AnthropicAPIKey,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		generators["anthropic"] = client
	}

	if cfg.LLM.OpenAIAPIKey != "" {
		client, err := llm.NewClient(&llm.Config{
			Provider: "openai",
			APIKey:   cfg.LLM.OpenAIAPIKey,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		generators["openai"] = client
	}

	return generators, nil
}

// buildRegistry wires the three node executors.
func buildRegistry(generators map[string]ports.TextGenerator, metrics ports.MetricsCollector) *executors.Registry {
	return executors.NewRegistry(
		executors.NewGenerative(generators, executors.GenerativeOptions{
			Budget:             cfg.LLM.MaxConcurrentRequests,
			MaxRetries:         cfg.LLM.MaxRetries,
			Backoff:            cfg.LLM.RetryBackoff,
			RequestTimeout:     cfg.LLM.RequestTimeout,
			DefaultMaxTokens:   cfg.LLM.DefaultMaxTokens,
			DefaultTemperature: cfg.LLM.DefaultTemperature,
		}, logger, metrics),
		executors.NewComputational(valuation.NewEngine(), logger),
		executors.NewPassthrough(),
	)
}
