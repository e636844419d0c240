// Package config provides hierarchical configuration loading for Relay.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"time"

	"github.com/relayops/relay/internal/domain/routing"
)

// Config holds all runtime configuration for the Relay core service.
type Config struct {
	Server    Server           `yaml:"server"`
	Logging   Logging          `yaml:"logging"`
	Routing   Routing          `yaml:"routing"`
	Health    Health           `yaml:"health"`
	Retry     Retry            `yaml:"retry"`
	Defaults  SessionDefaults  `yaml:"defaults"`
	Postgres  Postgres         `yaml:"postgres"`
	NATS      NATS             `yaml:"nats"`
	Cache     Cache            `yaml:"cache"`
	Rate      Rate             `yaml:"rate"`
	Auth      Auth             `yaml:"auth"`
	Telemetry Telemetry        `yaml:"telemetry"`
	Providers []ProviderConfig `yaml:"providers"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Routing holds routing engine configuration.
type Routing struct {
	Strategy       string          `yaml:"strategy"`         // cost | latency | capability | fallback | hybrid
	Weights        routing.Weights `yaml:"weights"`          // hybrid component weights
	MaxChainLength int             `yaml:"max_chain_length"` // fallback chain cap
	Priority       []string        `yaml:"priority"`         // static order for the fallback strategy
}

// Health holds health monitor and circuit breaker configuration.
type Health struct {
	WindowSize       int           `yaml:"window_size"`       // rolling observation window
	FailureThreshold int           `yaml:"failure_threshold"` // consecutive failures that open the circuit
	CoolDown         time.Duration `yaml:"cool_down"`         // open -> half-open interval
}

// Retry holds fallback-chain retry/backoff configuration.
type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"` // attempt budget across the whole chain
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// SessionDefaults holds per-request defaults applied when a request leaves
// them unset.
type SessionDefaults struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	SpawnTimeout time.Duration `yaml:"spawn_timeout"`
	ExecTimeout  time.Duration `yaml:"exec_timeout"`
	Fallback     bool          `yaml:"fallback"` // allow transparent fallback on failure
}

// Postgres holds the optional audit store configuration. Empty DSN disables it.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the queue configuration for queue-backed providers. Empty URL
// disables the queue.
type NATS struct {
	URL string `yaml:"url"`
}

// Cache holds the in-process decision cache configuration.
type Cache struct {
	MaxSizeMB   int64         `yaml:"max_size_mb"`
	DecisionTTL time.Duration `yaml:"decision_ttl"`
}

// Rate holds API rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Auth holds API authentication configuration. When enabled, requests must
// carry a bearer token matching TokenHash (bcrypt).
type Auth struct {
	Enabled    bool   `yaml:"enabled"`
	TokenHash  string `yaml:"token_hash"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// Telemetry holds OpenTelemetry exporter configuration.
type Telemetry struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// ProviderConfig declares one provider adapter to construct at startup.
type ProviderConfig struct {
	Name           string            `yaml:"name"`
	Kind           string            `yaml:"kind"` // shell | http | nats | mcp
	URL            string            `yaml:"url,omitempty"`
	Token          string            `yaml:"token,omitempty"`
	Command        string            `yaml:"command,omitempty"` // mcp stdio transport
	Args           []string          `yaml:"args,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	WorkDir        string            `yaml:"work_dir,omitempty"`
	ExecTool       string            `yaml:"exec_tool,omitempty"` // mcp tool name, default "exec"
	DefaultModel   string            `yaml:"default_model,omitempty"`
	Capabilities   []string          `yaml:"capabilities"`
	MaxConcurrent  int               `yaml:"max_concurrent"`
	CostPer1K      float64           `yaml:"cost_per_1k"`
	TypicalLatency time.Duration     `yaml:"typical_latency"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Logging: Logging{
			Level:   "info",
			Service: "relay-core",
		},
		Routing: Routing{
			Strategy:       string(routing.StrategyHybrid),
			Weights:        routing.Weights{Cost: 0.3, Latency: 0.3, Reliability: 0.4},
			MaxChainLength: 8,
		},
		Health: Health{
			WindowSize:       20,
			FailureThreshold: 5,
			CoolDown:         30 * time.Second,
		},
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    5 * time.Second,
		},
		Defaults: SessionDefaults{
			SpawnTimeout: 30 * time.Second,
			ExecTimeout:  2 * time.Minute,
			Fallback:     true,
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Cache: Cache{
			MaxSizeMB:   32,
			DecisionTTL: time.Hour,
		},
		Rate: Rate{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Auth: Auth{
			BcryptCost: 12,
		},
	}
}
