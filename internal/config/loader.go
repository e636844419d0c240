package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relayops/relay/internal/domain/routing"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "relay.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "RELAY_PORT")
	setString(&cfg.Server.CORSOrigin, "RELAY_CORS_ORIGIN")
	setString(&cfg.Logging.Level, "RELAY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "RELAY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "RELAY_LOG_ASYNC")

	setString(&cfg.Routing.Strategy, "RELAY_ROUTING_STRATEGY")
	setFloat64(&cfg.Routing.Weights.Cost, "RELAY_ROUTING_WEIGHT_COST")
	setFloat64(&cfg.Routing.Weights.Latency, "RELAY_ROUTING_WEIGHT_LATENCY")
	setFloat64(&cfg.Routing.Weights.Reliability, "RELAY_ROUTING_WEIGHT_RELIABILITY")
	setInt(&cfg.Routing.MaxChainLength, "RELAY_ROUTING_MAX_CHAIN")

	setInt(&cfg.Health.WindowSize, "RELAY_HEALTH_WINDOW")
	setInt(&cfg.Health.FailureThreshold, "RELAY_HEALTH_FAILURE_THRESHOLD")
	setDuration(&cfg.Health.CoolDown, "RELAY_HEALTH_COOL_DOWN")

	setInt(&cfg.Retry.MaxAttempts, "RELAY_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.BaseDelay, "RELAY_RETRY_BASE_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "RELAY_RETRY_MAX_DELAY")

	setString(&cfg.Defaults.Provider, "RELAY_DEFAULT_PROVIDER")
	setString(&cfg.Defaults.Model, "RELAY_DEFAULT_MODEL")
	setDuration(&cfg.Defaults.SpawnTimeout, "RELAY_SPAWN_TIMEOUT")
	setDuration(&cfg.Defaults.ExecTimeout, "RELAY_EXEC_TIMEOUT")
	setBool(&cfg.Defaults.Fallback, "RELAY_FALLBACK_ENABLED")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "RELAY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "RELAY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "RELAY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "RELAY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "RELAY_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setInt64(&cfg.Cache.MaxSizeMB, "RELAY_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.DecisionTTL, "RELAY_CACHE_DECISION_TTL")

	setFloat64(&cfg.Rate.RequestsPerSecond, "RELAY_RATE_RPS")
	setInt(&cfg.Rate.Burst, "RELAY_RATE_BURST")

	setBool(&cfg.Auth.Enabled, "RELAY_AUTH_ENABLED")
	setString(&cfg.Auth.TokenHash, "RELAY_AUTH_TOKEN_HASH")
	setInt(&cfg.Auth.BcryptCost, "RELAY_AUTH_BCRYPT_COST")

	setBool(&cfg.Telemetry.Enabled, "RELAY_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if !routing.Strategy(cfg.Routing.Strategy).Valid() {
		return fmt.Errorf("routing.strategy %q is not a known strategy", cfg.Routing.Strategy)
	}
	if cfg.Routing.MaxChainLength < 1 {
		return errors.New("routing.max_chain_length must be >= 1")
	}
	if cfg.Health.WindowSize < 1 {
		return errors.New("health.window_size must be >= 1")
	}
	if cfg.Health.FailureThreshold < 1 {
		return errors.New("health.failure_threshold must be >= 1")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	seen := make(map[string]bool, len(cfg.Providers))
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Name == "" {
			return fmt.Errorf("providers[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers[%d].name %q is duplicated", i, p.Name)
		}
		seen[p.Name] = true
		switch p.Kind {
		case "shell", "http", "nats", "mcp":
		default:
			return fmt.Errorf("providers[%d].kind %q must be one of shell, http, nats, mcp", i, p.Kind)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
