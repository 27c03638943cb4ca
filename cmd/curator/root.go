package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/curatord/curator/internal/config"
	"github.com/curatord/curator/internal/storage"
)

// Shared state for all commands, set up by the root PersistentPreRun
var (
	dbPath     string
	configPath string
	logLevel   string

	cfg    *config.Config
	store  storage.Storage
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Content-addressable file deduplication and safe migration",
	Long: `Curator indexes large file repositories, detects exact duplicates by
content hash, and reorganizes files through a staged, validated,
fully reversible migration pipeline.

Typical flow:
  curator init
  curator scan ~/documents
  curator analyze <session-id>
  curator plan <session-id>
  curator stage <plan-id> && curator validate <plan-id>
  curator commit <plan-id> --snapshot
  curator rollback <plan-id>        # if needed`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		if isatty.IsTerminal(os.Stderr.Fd()) {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		} else {
			logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
		}

		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
		} else {
			cfg = config.Default()
		}

		// init creates the store itself; everything else opens it here
		if cmd.Name() == "init" || cmd.Name() == "help" {
			return nil
		}
		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: dbPath})
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", storage.DefaultConfig().Path, "Path to the repository database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
