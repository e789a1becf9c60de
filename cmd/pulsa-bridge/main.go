// Command pulsa-bridge serves the pulsa purchase tools over stdio.
// Logs go to stderr; stdout belongs to the tool protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tyo-it/pulsa-bridge/pkg/config"
	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
	"github.com/tyo-it/pulsa-bridge/pkg/logging"
	"github.com/tyo-it/pulsa-bridge/pkg/orchestrator"
	"github.com/tyo-it/pulsa-bridge/pkg/redact"
	"github.com/tyo-it/pulsa-bridge/pkg/runner"
	"github.com/tyo-it/pulsa-bridge/pkg/session"
	"github.com/tyo-it/pulsa-bridge/pkg/toolbridge"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults run in simulation mode)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "pulsa-bridge:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	gwCfg, err := cfg.GatewayConfig()
	if err != nil {
		return err
	}
	gw := gateway.NewClient(gwCfg, logging.NewComponentLogger(logger, "gateway"))
	if gwCfg.SimulationOnly {
		logger.Warn("gateway_simulation_only")
	}

	store := session.NewMemoryStore(cfg.SessionTTL())
	orch := orchestrator.New(gw, store, cfg.SessionTTL(),
		logging.NewComponentLogger(logger, "orchestrator"))
	registry := toolbridge.NewRegistry(gw, orch,
		logging.NewComponentLogger(logger, "toolbridge"))
	server := toolbridge.NewServer(registry, runner.Version,
		logging.NewComponentLogger(logger, "server"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store.StartSweeper(ctx, cfg.SweepInterval(), logging.NewComponentLogger(logger, "session"))

	lr := runner.NewLifecycleRunner(server.Run, nil, runner.Hooks{
		OnStart: func() {
			logger.Info("daemon_started",
				"environment", cfg.Environment,
				"gateway_provider", cfg.Gateway.Provider,
				"session_ttl", cfg.SessionTTL().String())
		},
		OnStop: func() {
			logger.Info("daemon_stopped", "open_sessions", store.Len())
		},
	}, 10*time.Second)

	return lr.Run(ctx)
}
