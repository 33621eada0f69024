// Package common provides shared utilities for Tickwatch
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Tickwatch
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Providers   ProvidersConfig `toml:"providers"`
	Cache       CacheConfig     `toml:"cache"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Backend string `toml:"backend"` // "badger" (default)
	Path    string `toml:"path"`
}

// ProvidersConfig holds market-data provider configurations
type ProvidersConfig struct {
	// DefaultSource is used when the caller states no preference.
	DefaultSource string             `toml:"default_source"`
	Yahoo         YahooConfig        `toml:"yahoo"`
	AlphaVantage  AlphaVantageConfig `toml:"alpha_vantage"`
	Eastmoney     EastmoneyConfig    `toml:"eastmoney"`
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 10*time.Second)
}

// AlphaVantageConfig holds Alpha Vantage client configuration
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 10*time.Second)
}

// EastmoneyConfig holds Eastmoney client configuration
type EastmoneyConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EastmoneyConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout, 10*time.Second)
}

// CacheConfig tunes the snapshot cache layer
type CacheConfig struct {
	TTL            string `toml:"ttl"`             // snapshot validity window
	RefreshWorkers int    `toml:"refresh_workers"` // bounded batch concurrency
	NewsLimit      int    `toml:"news_limit"`      // default news accessor cap
}

// GetTTL parses and returns the snapshot TTL
func (c *CacheConfig) GetTTL() time.Duration {
	return parseTimeout(c.TTL, FreshnessSnapshot)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseTimeout(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/market",
		},
		Providers: ProvidersConfig{
			DefaultSource: "YFINANCE",
			Yahoo: YahooConfig{
				BaseURL:   "https://query2.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Eastmoney: EastmoneyConfig{
				BaseURL: "https://push2.eastmoney.com",
				Timeout: "10s",
			},
		},
		Cache: CacheConfig{
			TTL:            "60s",
			RefreshWorkers: 5,
			NewsLimit:      10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKWATCH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TICKWATCH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TICKWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TICKWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("TICKWATCH_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if key := os.Getenv("TICKWATCH_ALPHA_VANTAGE_KEY"); key != "" {
		config.Providers.AlphaVantage.APIKey = key
	}

	if src := os.Getenv("TICKWATCH_DEFAULT_SOURCE"); src != "" {
		config.Providers.DefaultSource = strings.ToUpper(src)
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
