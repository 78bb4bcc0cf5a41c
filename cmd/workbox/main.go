package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"workbox/internal/chat"
	"workbox/internal/config"
	"workbox/internal/tools"
	"workbox/internal/workspace"
)

var (
	debugMode  = flag.Bool("d", false, "Enable debug mode")
	logFile    = flag.String("log-file", "", "Log file path (logs disabled by default)")
	configPath = flag.String("config", "config.json", "Path to config file")
)

func main() {
	flag.Parse()

	logger := initLogger(*debugMode, *logFile)
	logger.Info().Msg("Workbox starting")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ws, err := workspace.New(cfg.Workspace, cfg.WorkspaceLimits())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open workspace")
	}
	registry := tools.NewRegistryWithPolicy(ws, cfg.ToolPolicy())

	session := chat.NewSession(cfg, registry)
	session.Logger = logger
	session.Approver = newToolApprover()

	if cfg.HistoryFile != "" {
		if err := session.LoadConversationHistory(cfg.HistoryFile, cfg.HistoryMaxMessages); err != nil {
			logger.Warn().Err(err).Msg("Could not load conversation history")
		}
	}

	runREPL(session, cfg, logger)
}

func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	} else {
		output = io.Discard
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func runREPL(session *chat.Session, cfg *config.Config, logger zerolog.Logger) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "❯ ",
		HistoryFile:     cfg.CommandHistoryFile,
		AutoComplete:    getCommandCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize readline")
	}
	defer rl.Close()

	fmt.Println("Workbox by Dyne.org")
	fmt.Printf("Workspace: %s\n", session.ToolRegistry.Workspace().Root())
	fmt.Printf("Model in use: %s\n", cfg.Model)
	fmt.Println("Type /help for commands, Ctrl+C or /quit to exit")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil {
			logger.Debug().Msg("Readline interrupted")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		logger.Info().Str("user_input", line).Msg("User input received")

		if strings.HasPrefix(line, "/") {
			if handleCommand(line, session, logger) {
				break
			}
			continue
		}

		handleConversation(line, session, cfg, logger)
	}

	logger.Info().Msg("Session ended")
}

func handleConversation(line string, session *chat.Session, cfg *config.Config, logger zerolog.Logger) {
	answer, err := session.GetResponse(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Error().Err(err).Msg("Conversation turn failed")
		return
	}
	fmt.Printf("⟫ %s\n", answer)

	if cfg.HistoryFile != "" {
		if err := session.SaveConversationHistory(cfg.HistoryFile); err != nil {
			logger.Warn().Err(err).Msg("Could not save conversation history")
		}
	}
}

func getCommandCompleter() *readline.PrefixCompleter {
	commands := getAvailableCommands()
	items := make([]readline.PrefixCompleterInterface, len(commands))
	for i, cmd := range commands {
		items[i] = readline.PcItem("/" + cmd.Name)
	}
	return readline.NewPrefixCompleter(items...)
}
