package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/adapters/llm/anthropic"
	"github.com/valgraph/valgraph/pkg/adapters/llm/openai"
	"github.com/valgraph/valgraph/pkg/ports"
)

// Config holds text-generation client configuration.
type Config struct {
	Provider string
	APIKey   string
	Logger   *zap.Logger
}

// NewClient creates a text-generation client for the provider.
func NewClient(cfg *Config) (ports.TextGenerator, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(cfg.APIKey, cfg.Logger)
	case "openai":
		return openai.NewClient(cfg.APIKey, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported text-generation provider: %s", cfg.Provider)
	}
}
