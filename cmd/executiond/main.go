// Command executiond runs the Live Execution Engine: it accepts commands
// from strategies, forwards them to venue adapters, consumes the resulting
// events, and keeps the in-memory position/order cache and the execution
// database in sync.
//
// Architecture:
//
//	main.go                  — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/execengine      — orchestrator: command/event worker loops, validation, persistence
//	internal/execcache       — in-memory order/position/account state machine
//	internal/execdb          — durable order/position/account persistence (bypass or badger)
//	internal/execclient      — per-venue outbound adapter registry plus the SIM reference client
//	internal/stratreg        — strategy registration and event notification
//	internal/statusapi       — read-only HTTP introspection endpoint
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"execengine/internal/config"
	"execengine/internal/execcache"
	"execengine/internal/execclient"
	"execengine/internal/execclient/venueauth"
	"execengine/internal/execdb"
	"execengine/internal/execengine"
	"execengine/internal/statusapi"
	"execengine/internal/stratreg"
	"execengine/pkg/model"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("EXEC_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	ctx := context.Background()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	cache := execcache.New()
	if err := warmStartCache(ctx, cache, db); err != nil {
		logger.Error("failed to warm-start cache from database", "error", err)
		os.Exit(1)
	}
	clients := execclient.NewRegistry()
	strategies := stratreg.New(logger)
	traderID := model.NewTraderID("trader", cfg.TraderID)

	eng := execengine.New(cfg.Engine, traderID, cache, db, clients, strategies, nil, logger)

	for _, vc := range cfg.Venues {
		client, err := buildVenueClient(vc, cfg.Engine.ClientCallTimeout(), logger)
		if err != nil {
			logger.Error("failed to build venue client", "venue", vc.Name, "error", err)
			os.Exit(1)
		}
		venue := model.NewVenue(vc.Backend, vc.Name)
		if err := eng.RegisterClient(venue, client); err != nil {
			logger.Error("failed to register venue client", "venue", vc.Name, "error", err)
			os.Exit(1)
		}
		if err := client.Connect(ctx); err != nil {
			logger.Error("failed to connect venue client", "venue", vc.Name, "error", err)
			os.Exit(1)
		}
	}

	var statusServer *statusapi.Server
	if cfg.Status.Enabled {
		statusServer = statusapi.New(cfg.Status.Port, engineStatusAdapter{eng}, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server started", "port", cfg.Status.Port)
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("execution engine started",
		"trader_id", cfg.TraderID,
		"venues", len(cfg.Venues),
		"database_backend", cfg.Database.Backend,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if statusServer != nil {
		if err := statusServer.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}

	if err := eng.Stop(); err != nil {
		logger.Error("engine stop reported an error", "error", err)
	}
	if err := eng.Dispose(); err != nil {
		logger.Error("engine dispose reported an error", "error", err)
	}
}

// warmStartCache loads every account/order/position the database holds
// and restores them into the cache before the engine starts accepting
// commands, so a restart resumes from where the previous run left off
// instead of forgetting everything the bypass-free deployments persisted.
func warmStartCache(ctx context.Context, cache *execcache.Cache, db execdb.Database) error {
	accounts, err := db.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	orders, err := db.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("load orders: %w", err)
	}
	positions, err := db.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	snapshot := execcache.Snapshot{
		Accounts:  make([]*model.Account, 0, len(accounts)),
		Orders:    make([]*model.Order, 0, len(orders)),
		Positions: make([]*model.Position, 0, len(positions)),
	}
	for _, a := range accounts {
		snapshot.Accounts = append(snapshot.Accounts, a)
	}
	for _, o := range orders {
		snapshot.Orders = append(snapshot.Orders, o)
	}
	for _, p := range positions {
		snapshot.Positions = append(snapshot.Positions, p)
	}
	cache.Restore(snapshot)
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (execdb.Database, error) {
	switch cfg.Backend {
	case "badger":
		return execdb.OpenBadger(cfg.DataDir)
	case "bypass", "":
		return execdb.NewBypass(), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

func buildVenueClient(vc config.VenueConfig, callTimeout time.Duration, logger *slog.Logger) (execclient.Client, error) {
	switch vc.Backend {
	case "sim", "":
		var signer *venueauth.Signer
		if vc.PrivateKey != "" {
			s, err := venueauth.NewSigner(vc.PrivateKey, vc.ChainID)
			if err != nil {
				return nil, fmt.Errorf("build signer for venue %s: %w", vc.Name, err)
			}
			signer = s
		}
		venue := model.NewVenue(vc.Backend, vc.Name)
		return execclient.NewSimClient(venue, vc.RestBaseURL, vc.WSURL, callTimeout, signer, logger), nil
	default:
		return nil, fmt.Errorf("unknown venue backend %q for venue %s", vc.Backend, vc.Name)
	}
}

// engineStatusAdapter renders execengine.Engine's ComponentState as a plain
// string so *execengine.Engine satisfies statusapi.EngineStatus without
// statusapi importing execengine.
type engineStatusAdapter struct {
	*execengine.Engine
}

func (a engineStatusAdapter) State() string { return a.Engine.State().String() }

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
