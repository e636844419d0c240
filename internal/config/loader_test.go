package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != "hybrid" {
		t.Errorf("expected hybrid strategy, got %s", cfg.Routing.Strategy)
	}
	if cfg.Routing.MaxChainLength != 8 {
		t.Errorf("expected max chain 8, got %d", cfg.Routing.MaxChainLength)
	}
	if cfg.Health.WindowSize != 20 {
		t.Errorf("expected window 20, got %d", cfg.Health.WindowSize)
	}
	if cfg.Health.CoolDown != 30*time.Second {
		t.Errorf("expected cool down 30s, got %v", cfg.Health.CoolDown)
	}
	if cfg.Retry.BaseDelay != 200*time.Millisecond {
		t.Errorf("expected base delay 200ms, got %v", cfg.Retry.BaseDelay)
	}
	if !cfg.Defaults.Fallback {
		t.Error("expected fallback enabled by default")
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
routing:
  strategy: "cost"
  max_chain_length: 3
health:
  failure_threshold: 2
providers:
  - name: local
    kind: shell
    capabilities: ["code", "exec"]
    max_concurrent: 4
    cost_per_1k: 0.0
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != "cost" {
		t.Errorf("expected cost strategy, got %s", cfg.Routing.Strategy)
	}
	if cfg.Routing.MaxChainLength != 3 {
		t.Errorf("expected max chain 3, got %d", cfg.Routing.MaxChainLength)
	}
	if cfg.Health.FailureThreshold != 2 {
		t.Errorf("expected threshold 2, got %d", cfg.Health.FailureThreshold)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Name != "local" {
		t.Fatalf("expected one provider named local, got %+v", cfg.Providers)
	}
	if cfg.Providers[0].MaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.Providers[0].MaxConcurrent)
	}
	// Unchanged fields keep defaults
	if cfg.Health.WindowSize != 20 {
		t.Errorf("expected default window 20, got %d", cfg.Health.WindowSize)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("RELAY_PORT", "7070")
	t.Setenv("RELAY_ROUTING_STRATEGY", "latency")
	t.Setenv("RELAY_HEALTH_COOL_DOWN", "1m")
	t.Setenv("RELAY_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RELAY_FALLBACK_ENABLED", "false")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/relay")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Routing.Strategy != "latency" {
		t.Errorf("expected latency strategy, got %s", cfg.Routing.Strategy)
	}
	if cfg.Health.CoolDown != time.Minute {
		t.Errorf("expected cool down 1m, got %v", cfg.Health.CoolDown)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Defaults.Fallback {
		t.Error("expected fallback disabled via env")
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/relay" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "unknown strategy",
			modify: func(c *Config) { c.Routing.Strategy = "cheapest" },
			errMsg: `routing.strategy "cheapest" is not a known strategy`,
		},
		{
			name:   "zero chain length",
			modify: func(c *Config) { c.Routing.MaxChainLength = 0 },
			errMsg: "routing.max_chain_length must be >= 1",
		},
		{
			name:   "zero window",
			modify: func(c *Config) { c.Health.WindowSize = 0 },
			errMsg: "health.window_size must be >= 1",
		},
		{
			name:   "zero failure threshold",
			modify: func(c *Config) { c.Health.FailureThreshold = 0 },
			errMsg: "health.failure_threshold must be >= 1",
		},
		{
			name:   "zero retry attempts",
			modify: func(c *Config) { c.Retry.MaxAttempts = 0 },
			errMsg: "retry.max_attempts must be >= 1",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name: "unnamed provider",
			modify: func(c *Config) {
				c.Providers = []ProviderConfig{{Kind: "shell"}}
			},
			errMsg: "providers[0].name is required",
		},
		{
			name: "duplicate provider",
			modify: func(c *Config) {
				c.Providers = []ProviderConfig{
					{Name: "a", Kind: "shell"},
					{Name: "a", Kind: "http"},
				}
			},
			errMsg: `providers[1].name "a" is duplicated`,
		},
		{
			name: "unknown provider kind",
			modify: func(c *Config) {
				c.Providers = []ProviderConfig{{Name: "a", Kind: "grpc"}}
			},
			errMsg: `providers[0].kind "grpc" must be one of shell, http, nats, mcp`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFromFullHierarchy(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "relay.yaml")
	content := `
server:
  port: "9090"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// ENV wins over YAML.
	t.Setenv("RELAY_PORT", "7070")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected env port 7070 over yaml 9090, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected yaml log level debug, got %s", cfg.Logging.Level)
	}
}
