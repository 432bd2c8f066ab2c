package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "trader_id: trader-1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.CommandQueueSize != 10_000 {
		t.Errorf("CommandQueueSize = %d, want 10000", cfg.Engine.CommandQueueSize)
	}
	if cfg.Engine.PersistenceRetries != 3 {
		t.Errorf("PersistenceRetries = %d, want 3", cfg.Engine.PersistenceRetries)
	}
	if cfg.Database.Backend != "bypass" {
		t.Errorf("Database.Backend = %q, want bypass", cfg.Database.Backend)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
trader_id: trader-1
engine:
  command_queue_size: 50
venues:
  - name: SIM
    backend: sim
    rest_base_url: http://localhost:9000
database:
  backend: badger
  data_dir: /tmp/execdb
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.CommandQueueSize != 50 {
		t.Errorf("CommandQueueSize = %d, want 50", cfg.Engine.CommandQueueSize)
	}
	if len(cfg.Venues) != 1 || cfg.Venues[0].Name != "SIM" {
		t.Fatalf("Venues = %+v, want one venue named SIM", cfg.Venues)
	}
	if cfg.Database.Backend != "badger" || cfg.Database.DataDir != "/tmp/execdb" {
		t.Errorf("Database = %+v, want badger at /tmp/execdb", cfg.Database)
	}
}

func TestLoadParsesMillisecondTimeoutsAsPlainIntegers(t *testing.T) {
	// engine.*_timeout_ms is an integer count of milliseconds, the natural
	// way to write it in YAML — not a "5s"-style duration string.
	path := writeConfig(t, `
trader_id: trader-1
engine:
  stop_drain_timeout_ms: 5000
  client_call_timeout_ms: 30000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.Engine.StopDrainTimeout(), 5*time.Second; got != want {
		t.Errorf("StopDrainTimeout() = %s, want %s", got, want)
	}
	if got, want := cfg.Engine.ClientCallTimeout(), 30*time.Second; got != want {
		t.Errorf("ClientCallTimeout() = %s, want %s", got, want)
	}
}

func TestLoadVenuePrivateKeyFromEnv(t *testing.T) {
	path := writeConfig(t, `
trader_id: trader-1
venues:
  - name: SIM
    backend: sim
`)
	t.Setenv("EXEC_VENUE_SIM_PRIVATE_KEY", "0xdeadbeef")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Venues[0].PrivateKey != "0xdeadbeef" {
		t.Errorf("PrivateKey = %q, want 0xdeadbeef", cfg.Venues[0].PrivateKey)
	}
}

func TestValidateRequiresTraderID(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{CommandQueueSize: 1, EventQueueSize: 1}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for missing trader_id")
	}
}

func TestValidateRejectsUnknownDatabaseBackend(t *testing.T) {
	cfg := &Config{
		TraderID: "trader-1",
		Engine:   EngineConfig{CommandQueueSize: 1, EventQueueSize: 1},
		Database: DatabaseConfig{Backend: "mongo"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown database backend")
	}
}

func TestValidateRequiresDataDirForBadger(t *testing.T) {
	cfg := &Config{
		TraderID: "trader-1",
		Engine:   EngineConfig{CommandQueueSize: 1, EventQueueSize: 1},
		Database: DatabaseConfig{Backend: "badger"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for badger backend with no data_dir")
	}
}
