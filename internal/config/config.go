// Package config provides configuration loading and validation for the server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration, read from the environment.
// Values come from a .env file or real environment variables.
type Config struct {
	Port        int
	DatabaseURL string

	// External AI services
	AISkillsURL      string
	AICareerURL      string
	AIServiceAPIKey  string
	AIServiceTimeout time.Duration

	// Resilience
	AIFailureThreshold int
	AIOpenTimeout      time.Duration
	AIMaxRetries       int
	AIRetryDelay       time.Duration

	// Completeness thresholds
	MinPeerEvaluations   int
	MinDirectReportEvals int
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 8080,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		AISkillsURL:          os.Getenv("AI_SKILLS_SERVICE_URL"),
		AICareerURL:          os.Getenv("AI_CAREER_SERVICE_URL"),
		AIServiceAPIKey:      os.Getenv("AI_SERVICE_API_KEY"),
		AIServiceTimeout:     30 * time.Second,
		AIFailureThreshold:   5,
		AIOpenTimeout:        60 * time.Second,
		AIMaxRetries:         3,
		AIRetryDelay:         time.Second,
		MinPeerEvaluations:   2,
		MinDirectReportEvals: 0,
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.AIServiceTimeout, err = durationEnv("AI_SERVICE_TIMEOUT", cfg.AIServiceTimeout); err != nil {
		return nil, err
	}
	if cfg.AIFailureThreshold, err = intEnv("AI_CIRCUIT_BREAKER_THRESHOLD", cfg.AIFailureThreshold); err != nil {
		return nil, err
	}
	if cfg.AIOpenTimeout, err = durationEnv("AI_CIRCUIT_BREAKER_TIMEOUT", cfg.AIOpenTimeout); err != nil {
		return nil, err
	}
	if cfg.AIMaxRetries, err = intEnv("AI_SERVICE_MAX_RETRIES", cfg.AIMaxRetries); err != nil {
		return nil, err
	}
	if cfg.AIRetryDelay, err = durationEnv("AI_SERVICE_RETRY_DELAY", cfg.AIRetryDelay); err != nil {
		return nil, err
	}
	if cfg.MinPeerEvaluations, err = intEnv("MIN_PEER_EVALUATIONS", cfg.MinPeerEvaluations); err != nil {
		return nil, err
	}
	if cfg.MinDirectReportEvals, err = intEnv("MIN_DIRECT_REPORT_EVALUATIONS", cfg.MinDirectReportEvals); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.AISkillsURL == "" {
		return fmt.Errorf("config error: AI_SKILLS_SERVICE_URL is required")
	}
	if c.AICareerURL == "" {
		return fmt.Errorf("config error: AI_CAREER_SERVICE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT must be between 1 and 65535")
	}
	if c.AIFailureThreshold <= 0 {
		return fmt.Errorf("config error: AI_CIRCUIT_BREAKER_THRESHOLD must be positive")
	}
	if c.AIMaxRetries < 0 {
		return fmt.Errorf("config error: AI_SERVICE_MAX_RETRIES must be non-negative")
	}
	if c.MinPeerEvaluations < 0 {
		return fmt.Errorf("config error: MIN_PEER_EVALUATIONS must be non-negative")
	}
	if c.MinDirectReportEvals < 0 {
		return fmt.Errorf("config error: MIN_DIRECT_REPORT_EVALUATIONS must be non-negative")
	}
	return nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config error: %s must be an integer: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	// Accept plain seconds for compatibility with numeric env values
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config error: %s must be a duration: %w", key, err)
	}
	return d, nil
}
