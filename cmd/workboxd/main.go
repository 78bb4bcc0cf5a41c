package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"workbox/internal/config"
	"workbox/internal/server"
	"workbox/internal/tools"
	"workbox/internal/workspace"
)

var (
	debugMode  = flag.Bool("d", false, "Enable debug mode")
	logFile    = flag.String("log-file", "", "Log file path (stderr by default)")
	configPath = flag.String("config", "config.json", "Path to config file")
	listenAddr = flag.String("listen", "", "Listen address (overrides config)")
)

func main() {
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}

	ws, err := workspace.New(cfg.Workspace, cfg.WorkspaceLimits())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open workspace")
	}
	logger.Info().Str("root", ws.Root()).Msg("Workspace ready")

	// No interactive approver behind HTTP; confirmation-gated tools
	// would always fail, so the daemon runs with confirmation off.
	registry := tools.NewRegistryWithPolicy(ws, tools.PolicyFromLists(cfg.ToolPolicy().AllowedNames(), nil))

	srv := server.New(cfg.Listen, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		if err := srv.Stop(); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}

	logger.Info().Msg("Stopped")
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer = os.Stderr
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
