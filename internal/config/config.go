// Package config defines all configuration for the execution engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via EXEC_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	TraderID string         `mapstructure:"trader_id"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Venues   []VenueConfig  `mapstructure:"venues"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Status   StatusConfig   `mapstructure:"status"`
}

// EngineConfig tunes the Live Execution Engine's queues, retries, and
// timeouts, matching the table in spec §6.
//
//   - CommandQueueSize / EventQueueSize: bounds of the command/event channels.
//   - PersistenceRetries: max DB write retries per event before escalating.
//   - StopDrainTimeoutMs: deadline for stop() to drain outstanding work.
//   - ClientCallTimeoutMs: per-call timeout on every outbound venue client call.
//
// The two timeouts are plain integer milliseconds, not time.Duration:
// viper's mapstructure decode hooks only parse *string* durations
// ("5s"), so a YAML value written the natural way for a "_ms" field
// (stop_drain_timeout_ms: 5000) would decode as time.Duration(5000),
// i.e. 5 microseconds. StopDrainTimeout/ClientCallTimeout below convert
// the configured milliseconds explicitly.
type EngineConfig struct {
	CommandQueueSize    int `mapstructure:"command_queue_size"`
	EventQueueSize      int `mapstructure:"event_queue_size"`
	PersistenceRetries  int `mapstructure:"persistence_retries"`
	StopDrainTimeoutMs  int `mapstructure:"stop_drain_timeout_ms"`
	ClientCallTimeoutMs int `mapstructure:"client_call_timeout_ms"`
}

// StopDrainTimeout is the stop()-drain deadline as a time.Duration.
func (c EngineConfig) StopDrainTimeout() time.Duration {
	return time.Duration(c.StopDrainTimeoutMs) * time.Millisecond
}

// ClientCallTimeout is the per-call outbound venue timeout as a time.Duration.
func (c EngineConfig) ClientCallTimeout() time.Duration {
	return time.Duration(c.ClientCallTimeoutMs) * time.Millisecond
}

// VenueConfig configures one registered venue adapter. SIM is the only
// backend implemented; the field exists so a deployment can register
// more than one venue without code changes.
type VenueConfig struct {
	Name        string `mapstructure:"name"`
	Backend     string `mapstructure:"backend"` // "sim"
	RestBaseURL string `mapstructure:"rest_base_url"`
	WSURL       string `mapstructure:"ws_url"`
	PrivateKey  string `mapstructure:"private_key"`
	ChainID     int64  `mapstructure:"chain_id"`
}

// DatabaseConfig selects and configures the Execution Database backend.
type DatabaseConfig struct {
	Backend string `mapstructure:"backend"` // "bypass" | "badger"
	DataDir string `mapstructure:"data_dir"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StatusConfig controls the read-only introspection HTTP server.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for i := range cfg.Venues {
		if key := os.Getenv(fmt.Sprintf("EXEC_VENUE_%s_PRIVATE_KEY", strings.ToUpper(cfg.Venues[i].Name))); key != "" {
			cfg.Venues[i].PrivateKey = key
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.command_queue_size", 10_000)
	v.SetDefault("engine.event_queue_size", 10_000)
	v.SetDefault("engine.persistence_retries", 3)
	v.SetDefault("engine.stop_drain_timeout_ms", 5_000)
	v.SetDefault("engine.client_call_timeout_ms", 30_000)
	v.SetDefault("database.backend", "bypass")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.port", 8090)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.TraderID == "" {
		return fmt.Errorf("trader_id is required")
	}
	if c.Engine.CommandQueueSize <= 0 {
		return fmt.Errorf("engine.command_queue_size must be > 0")
	}
	if c.Engine.EventQueueSize <= 0 {
		return fmt.Errorf("engine.event_queue_size must be > 0")
	}
	if c.Engine.PersistenceRetries < 0 {
		return fmt.Errorf("engine.persistence_retries must be >= 0")
	}
	for _, venue := range c.Venues {
		if venue.Name == "" {
			return fmt.Errorf("every venues[] entry requires a name")
		}
	}
	switch c.Database.Backend {
	case "bypass", "badger", "":
	default:
		return fmt.Errorf("database.backend must be one of: bypass, badger")
	}
	if c.Database.Backend == "badger" && c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir is required when database.backend is badger")
	}
	return nil
}
