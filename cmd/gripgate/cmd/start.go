package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	inhttp "github.com/grip-gate/gripgate/internal/adapter/inbound/http"
	"github.com/grip-gate/gripgate/internal/config"
	"github.com/grip-gate/gripgate/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	Long: `Start the gripgate server.

The server expects to sit behind a GRIP-capable reverse proxy. Configure
the proxy control endpoints under grip.proxies (or grip.url), then point
the proxy's backend route at this server.

Examples:
  # Start with config file settings
  gripgate start

  # Start against a local Pushpin with no signature checking
  GRIPGATE_GRIP_URL=http://localhost:5561 gripgate start`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Signal context for graceful shutdown. stop() restores default signal
	// handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	gate := service.NewGate(service.WithLogger(logger))
	gateCfg, err := service.GateConfigFromFile(cfg)
	if err != nil {
		return fmt.Errorf("failed to build grip configuration: %w", err)
	}
	if err := gate.ApplyConfig(gateCfg); err != nil {
		return fmt.Errorf("failed to apply grip configuration: %w", err)
	}
	logger.Info("grip configured",
		"proxies", len(gateCfg.Proxies),
		"proxy_required", gateCfg.ProxyRequired,
		"prefix", gateCfg.Prefix,
	)

	server := inhttp.NewServer(gate,
		inhttp.WithAddr(cfg.Server.HTTPAddr),
		inhttp.WithLogger(logger),
		inhttp.WithHealthChecker(inhttp.NewHealthChecker(gate, Version)),
	)
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("gripgate stopped")
	return nil
}

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
