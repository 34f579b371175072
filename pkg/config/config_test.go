package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("OSRS_API_USER_AGENT", "price-tracker-test - admin@example.com")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}
	if config.OSRS.Timestep != "5m" {
		t.Errorf("Expected default timestep '5m', got '%s'", config.OSRS.Timestep)
	}
	if config.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.Logging.Level)
	}
	if config.Cache.GetRowsTTL() != time.Minute {
		t.Errorf("Expected default rows TTL 1m, got %v", config.Cache.GetRowsTTL())
	}
}

func TestYAMLFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
osrs:
  user_agent: "from-yaml - admin@example.com"
  batch_size: 25
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed writing config file: %v", err)
	}

	t.Setenv("LOG_LEVEL", "warn")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from YAML, got %d", config.Server.Port)
	}
	if config.OSRS.UserAgent != "from-yaml - admin@example.com" {
		t.Errorf("Expected user agent from YAML, got '%s'", config.OSRS.UserAgent)
	}
	if config.OSRS.GetBatchSize() != 25 {
		t.Errorf("Expected batch size 25, got %d", config.OSRS.GetBatchSize())
	}
	// Environment wins over YAML
	if config.Logging.Level != "warn" {
		t.Errorf("Expected env to override log level, got '%s'", config.Logging.Level)
	}
}

func TestUserAgentRequired(t *testing.T) {
	t.Setenv("OSRS_API_USER_AGENT", "")

	if _, err := LoadConfig(""); err == nil {
		t.Error("Expected validation error when no user agent is configured")
	}
}

func TestBoundsCheckedGetters(t *testing.T) {
	osrs := OSRSConfig{RateLimitDelayMs: 10, BatchSize: 0}
	if osrs.GetRateLimitDelay() != 100*time.Millisecond {
		t.Errorf("Expected 100ms floor, got %v", osrs.GetRateLimitDelay())
	}
	if osrs.GetBatchSize() != 1 {
		t.Errorf("Expected batch size floor 1, got %d", osrs.GetBatchSize())
	}

	osrs = OSRSConfig{BatchSize: 500}
	if osrs.GetBatchSize() != 50 {
		t.Errorf("Expected batch size cap 50, got %d", osrs.GetBatchSize())
	}

	refresh := RefreshConfig{IntervalSeconds: 1, BackoffBaseSeconds: 0}
	if refresh.GetInterval() != 10*time.Second {
		t.Errorf("Expected 10s interval floor, got %v", refresh.GetInterval())
	}
	if refresh.GetBackoffBase() != 15 {
		t.Errorf("Expected backoff base default 15, got %v", refresh.GetBackoffBase())
	}

	server := ServerConfig{Host: "127.0.0.1", Port: 3000, ShutdownTimeoutMs: 0}
	if server.Address() != "127.0.0.1:3000" {
		t.Errorf("Expected address 127.0.0.1:3000, got '%s'", server.Address())
	}
	if server.GetShutdownTimeout() != time.Second {
		t.Errorf("Expected 1s shutdown floor, got %v", server.GetShutdownTimeout())
	}
}

func TestPortValidation(t *testing.T) {
	t.Setenv("OSRS_API_USER_AGENT", "price-tracker-test - admin@example.com")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o644); err != nil {
		t.Fatalf("failed writing config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected validation error for out-of-range port")
	}
}
