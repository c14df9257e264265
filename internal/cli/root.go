// Package cli implements the tracker binary: the HTTP server plus the
// operational commands that share its configuration.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/daylog/time-tracker/internal/infrastructure/config"
	"github.com/daylog/time-tracker/pkg/logger"
)

const serviceName = "time-tracker"

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Daylog – per-user time tracking service",
	Long: `tracker serves the time tracking API and offers maintenance commands.
All settings come from environment variables (or a .env file).`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
}

// setup loads configuration and initialises the process logger.
func setup(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Output:  os.Stderr,
		Service: serviceName,
	})
	return cfg, log, nil
}
