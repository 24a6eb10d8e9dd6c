package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the valgraph engine.
type Config struct {
	// Server configuration (serve mode)
	HTTPPort int    `env:"VALGRAPH_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Workflow definitions directory
	WorkflowsDir string `env:"VALGRAPH_WORKFLOWS_DIR" envDefault:"workflows"`

	// Redis configuration (serve mode adapters)
	Redis RedisConfig

	// Text-generation service configuration
	LLM LLMConfig

	// Scheduler configuration
	Scheduler SchedulerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Record retention
	RecordTTL time.Duration `env:"REDIS_RECORD_TTL" envDefault:"720h"`
}

// LLMConfig holds text-generation provider configuration. The
// concurrency budget is shared across all generative nodes of a run.
type LLMConfig struct {
	Provider        string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`

	MaxConcurrentRequests int           `env:"LLM_MAX_CONCURRENT_REQUESTS" envDefault:"4"`
	RequestTimeout        time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	MaxRetries   int           `env:"LLM_MAX_RETRIES" envDefault:"3"`
	RetryBackoff time.Duration `env:"LLM_RETRY_BACKOFF" envDefault:"2s"`

	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.7"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"4096"`
}

// SchedulerConfig holds graph-scheduler configuration.
type SchedulerConfig struct {
	// Fallback iteration cap for workflows that do not declare one.
	DefaultIterationCap int `env:"SCHEDULER_DEFAULT_ITERATION_CAP" envDefault:"36"`
}

// TimeoutConfig holds run-level timeout configuration.
type TimeoutConfig struct {
	RunTimeout      time.Duration `env:"TIMEOUT_RUN" envDefault:"3600s"`
	NodeTimeout     time.Duration `env:"TIMEOUT_NODE" envDefault:"300s"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	if c.LLM.MaxConcurrentRequests < 1 {
		return fmt.Errorf("LLM concurrency budget must be at least 1")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM max retries must not be negative")
	}

	if c.Scheduler.DefaultIterationCap < 1 {
		return fmt.Errorf("default iteration cap must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
