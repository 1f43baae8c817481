package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rvcas/noway/internal/cdx"
)

// Config defines configuration for the noway CLI.
type Config struct {
	URL          string        `yaml:"url"`
	MatchType    string        `yaml:"match_type"`
	Output       string        `yaml:"output"`
	Concurrency  int           `yaml:"concurrency"`
	Timeout      time.Duration `yaml:"timeout"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	CDXBaseURL   string        `yaml:"cdx_base_url"`
	ReplayURL    string        `yaml:"replay_url"`
	UserAgent    string        `yaml:"user_agent"`
	Quiet        bool          `yaml:"quiet"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		MatchType:    cdx.MatchPrefix,
		Concurrency:  5,
		Timeout:      30 * time.Second,
		FetchTimeout: 15 * time.Second,
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	URL          string `yaml:"url"`
	MatchType    string `yaml:"match_type"`
	Output       string `yaml:"output"`
	Concurrency  int    `yaml:"concurrency"`
	Timeout      string `yaml:"timeout"`
	FetchTimeout string `yaml:"fetch_timeout"`
	CDXBaseURL   string `yaml:"cdx_base_url"`
	ReplayURL    string `yaml:"replay_url"`
	UserAgent    string `yaml:"user_agent"`
	Quiet        bool   `yaml:"quiet"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.MatchType != "" {
		cfg.MatchType = yc.MatchType
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Concurrency != 0 {
		cfg.Concurrency = yc.Concurrency
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.FetchTimeout != "" {
		d, err := time.ParseDuration(yc.FetchTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse fetch_timeout: %w", err)
		}
		cfg.FetchTimeout = d
	}
	if yc.CDXBaseURL != "" {
		cfg.CDXBaseURL = yc.CDXBaseURL
	}
	if yc.ReplayURL != "" {
		cfg.ReplayURL = yc.ReplayURL
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	cfg.Quiet = yc.Quiet

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the NOWAY_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("NOWAY_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("NOWAY_MATCH_TYPE"); v != "" {
		c.MatchType = v
	}
	if v := os.Getenv("NOWAY_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("NOWAY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse NOWAY_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("NOWAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse NOWAY_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("NOWAY_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse NOWAY_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v := os.Getenv("NOWAY_CDX_BASE_URL"); v != "" {
		c.CDXBaseURL = v
	}
	if v := os.Getenv("NOWAY_REPLAY_URL"); v != "" {
		c.ReplayURL = v
	}
	if v := os.Getenv("NOWAY_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("NOWAY_QUIET"); v != "" {
		c.Quiet = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if !cdx.ValidMatchType(c.MatchType) {
		return fmt.Errorf("config: invalid match type %q (want exact, prefix, host or domain)", c.MatchType)
	}
	if c.Concurrency < 1 {
		return errors.New("config: concurrency must be at least 1")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("config: fetch_timeout must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.MatchType != "" {
		c.MatchType = override.MatchType
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.FetchTimeout != 0 {
		c.FetchTimeout = override.FetchTimeout
	}
	if override.CDXBaseURL != "" {
		c.CDXBaseURL = override.CDXBaseURL
	}
	if override.ReplayURL != "" {
		c.ReplayURL = override.ReplayURL
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Quiet {
		c.Quiet = override.Quiet
	}
	return c
}
