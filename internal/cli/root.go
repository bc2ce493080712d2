// Package cli is the graphbridge command line.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"graphbridge/internal/config"
	"graphbridge/internal/logging"
)

// Version is set at build time with -ldflags "-X graphbridge/internal/cli.Version=...".
var Version = "dev"

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	EnvFile string
	LogMode string
}

var globalFlags = &GlobalFlags{}

var rootCmd = &cobra.Command{
	Use:   "graphbridge",
	Short: "Load relational catalogs into a property graph and ask it questions",
	Long: `graphbridge reads table constraints from a relational catalog
(DuckDB, Databricks SQL or PostgreSQL), loads node and relationship tables
into Neo4j, and answers natural language questions over the graph with an
LLM-generated Cypher query.

Configuration comes from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.EnvFile, "env-file", ".env", "Path to a .env file (ignored when missing)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogMode, "log-mode", "", "Log mode: dev or prod (overrides LOG_MODE)")

	rootCmd.Version = Version

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// setup loads the configuration and builds the logger for one command.
func setup() (config.Config, *logging.Logger, error) {
	cfg, err := config.Load(globalFlags.EnvFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if globalFlags.LogMode != "" {
		cfg.LogMode = globalFlags.LogMode
	}
	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
