package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	OSRS    OSRSConfig    `yaml:"osrs"`
	Refresh RefreshConfig `yaml:"refresh"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port" env:"PORT"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

// OSRSConfig holds OSRS price API configuration
type OSRSConfig struct {
	UserAgent        string `yaml:"user_agent" env:"OSRS_API_USER_AGENT"`
	BaseURL          string `yaml:"base_url,omitempty"`
	RateLimitDelayMs int    `yaml:"rate_limit_delay_ms"`
	BatchSize        int    `yaml:"batch_size"`
	Timestep         string `yaml:"timestep"`

	// EnrichRows makes each refresh cycle fetch per-item timeseries to
	// reconcile daily metrics. Off by default: with a full catalog this
	// means thousands of upstream calls per cycle, so it is only
	// sensible against small catalogs or generous rate limits.
	EnrichRows bool `yaml:"enrich_rows"`
}

// RefreshConfig controls the background row refresh loop
type RefreshConfig struct {
	IntervalSeconds    int    `yaml:"interval_seconds"`
	BackoffBaseSeconds int    `yaml:"backoff_base_seconds"`
	CatalogCron        string `yaml:"catalog_cron,omitempty"`
}

// CacheConfig controls response caching
type CacheConfig struct {
	RowsTTLSeconds int `yaml:"rows_ttl_seconds"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Start with minimal defaults (let YAML override)
	config := &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ShutdownTimeoutMs: 10000,
		},
		OSRS: OSRSConfig{
			UserAgent:        "",
			RateLimitDelayMs: 500,
			BatchSize:        10,
			Timestep:         "5m",
		},
		Refresh: RefreshConfig{
			IntervalSeconds:    60,
			BackoffBaseSeconds: 15,
			CatalogCron:        "0 */6 * * *",
		},
		Cache: CacheConfig{
			RowsTTLSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// Load from YAML file if it exists
	if configPath != "" {
		if err := loadYAMLFile(configPath, config); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables
	loadEnvironmentVariables(config)

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadYAMLFile loads configuration from a YAML file
func loadYAMLFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// loadEnvironmentVariables overrides config with environment variables
func loadEnvironmentVariables(config *Config) {
	if userAgent := os.Getenv("OSRS_API_USER_AGENT"); userAgent != "" {
		config.OSRS.UserAgent = userAgent
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if port := os.Getenv("PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			config.Server.Port = p
		}
	}
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	if config.OSRS.UserAgent == "" {
		return fmt.Errorf("a user agent string must be configured (set OSRS_API_USER_AGENT or osrs.user_agent)")
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}

	return nil
}

// GetRateLimitDelay returns the rate limit delay as a duration
func (c *OSRSConfig) GetRateLimitDelay() time.Duration {
	if c.RateLimitDelayMs < 100 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.RateLimitDelayMs) * time.Millisecond
}

// GetBatchSize returns the enrichment batch size with bounds checking
func (c *OSRSConfig) GetBatchSize() int {
	if c.BatchSize < 1 {
		return 1
	}
	if c.BatchSize > 50 {
		return 50
	}
	return c.BatchSize
}

// GetInterval returns the refresh interval as a duration
func (c *RefreshConfig) GetInterval() time.Duration {
	if c.IntervalSeconds < 10 {
		return 10 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// GetBackoffBase returns the failure backoff base in seconds
func (c *RefreshConfig) GetBackoffBase() float64 {
	if c.BackoffBaseSeconds < 1 {
		return 15
	}
	return float64(c.BackoffBaseSeconds)
}

// GetRowsTTL returns the assembled-rows cache TTL as a duration
func (c *CacheConfig) GetRowsTTL() time.Duration {
	if c.RowsTTLSeconds < 1 {
		return time.Minute
	}
	return time.Duration(c.RowsTTLSeconds) * time.Second
}

// GetShutdownTimeout returns the grace period for draining requests
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutMs < 1000 {
		return time.Second
	}
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// Address returns the host:port listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
