package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/aescanero/dago-rulekit/internal/logging"
	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// DefaultEnvFile is the dotenv file read by Load.
const DefaultEnvFile = ".env"

// Evaluation modes
const (
	// EvalModeAll applies every matching rule
	EvalModeAll = "all"

	// EvalModeFirst applies only the first matching rule
	EvalModeFirst = "first"
)

// Config holds all configuration for the rulekit worker
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"rulekit-1"`

	// Rules configuration
	RulesFile       string `env:"RULES_FILE" envDefault:"rules.yaml"`
	PriorityOrder   string `env:"PRIORITY_ORDER" envDefault:""`
	HookErrorPolicy string `env:"HOOK_ERROR_POLICY" envDefault:"log"`
	WatchRules      bool   `env:"WATCH_RULES" envDefault:"true"`
	EvalMode        string `env:"EVAL_MODE" envDefault:"all"`

	// Redis configuration
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASS" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"rulekit.facts"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"rulekit-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"rulekit.results"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`
	StateTTL      time.Duration `env:"STATE_TTL" envDefault:"0s"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from the .env file, if any, and environment variables
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RulesFile == "" {
		return fmt.Errorf("RULES_FILE is required")
	}

	if _, err := rulekit.ParsePriorityOrder(c.PriorityOrder); err != nil {
		return fmt.Errorf("PRIORITY_ORDER: %w", err)
	}

	if _, err := rulekit.ParseHookErrorPolicy(c.HookErrorPolicy); err != nil {
		return fmt.Errorf("HOOK_ERROR_POLICY: %w", err)
	}

	if c.EvalMode != EvalModeAll && c.EvalMode != EvalModeFirst {
		return fmt.Errorf("EVAL_MODE must be one of: all, first")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	if c.StateTTL < 0 {
		return fmt.Errorf("STATE_TTL must be non-negative")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !logging.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// Order returns the configured priority order override. ok is false when unset.
func (c *Config) Order() (order rulekit.PriorityOrder, ok bool) {
	if c.PriorityOrder == "" {
		return rulekit.Unordered, false
	}
	order, _ = rulekit.ParsePriorityOrder(c.PriorityOrder)
	return order, true
}

// HookPolicy returns the configured hook error policy.
func (c *Config) HookPolicy() rulekit.HookErrorPolicy {
	policy, _ := rulekit.ParseHookErrorPolicy(c.HookErrorPolicy)
	return policy
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RulesFile=%s, PriorityOrder=%s, HookErrorPolicy=%s, WatchRules=%v, EvalMode=%s, "+
			"RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, ResultStream=%s, "+
			"HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RulesFile,
		c.PriorityOrder,
		c.HookErrorPolicy,
		c.WatchRules,
		c.EvalMode,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ResultStream,
		c.HealthPort,
		c.LogLevel,
	)
}
