package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RateLimit overrides one named limit; zero fields keep the default.
type RateLimit struct {
	MaxRequests   int `json:"maxRequests"`
	WindowSeconds int `json:"windowSeconds"`
}

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"` // empty keeps everything in memory
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	JWT struct {
		Secret string `json:"secret"`
		TTL    int    `json:"ttl"` // in days
	} `json:"jwt"`
	Engine struct {
		DefaultDifficulty  string `json:"defaultDifficulty"`
		FallbackDifficulty string `json:"fallbackDifficulty"`
		MoveTimeoutMs      int    `json:"moveTimeoutMs"`
		FallbackTimeoutMs  int    `json:"fallbackTimeoutMs"`
	} `json:"engine"`
	Curriculum struct {
		File         string `json:"file"` // empty uses the built-in content
		PasswordCost int    `json:"passwordCost"`
	} `json:"curriculum"`
	Sweeper struct {
		IntervalSeconds  int `json:"intervalSeconds"`
		ThresholdSeconds int `json:"thresholdSeconds"`
	} `json:"sweeper"`
	RateLimits map[string]RateLimit `json:"rateLimits"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Replace environment variables in the config
	configStr := string(data)
	configStr = expandEnvVars(configStr)

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.MongoDB.URI != "" && c.MongoDB.Database == "" {
		return fmt.Errorf("mongodb.database is required when mongodb.uri is set")
	}
	for name, l := range c.RateLimits {
		if l.MaxRequests < 0 || l.WindowSeconds < 0 {
			return fmt.Errorf("rateLimits.%s must not be negative", name)
		}
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TokenTTL is the player token lifetime; zero means the auth default.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTL) * 24 * time.Hour
}

func (c *Config) MoveTimeout() time.Duration {
	return time.Duration(c.Engine.MoveTimeoutMs) * time.Millisecond
}

func (c *Config) FallbackTimeout() time.Duration {
	return time.Duration(c.Engine.FallbackTimeoutMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

func (c *Config) SweepThreshold() time.Duration {
	return time.Duration(c.Sweeper.ThresholdSeconds) * time.Second
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("CHESS_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
