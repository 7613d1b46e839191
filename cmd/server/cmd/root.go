package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/rbac_auth/internal/config"
	"github.com/Skotchmaster/rbac_auth/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "rbac-auth",
	Short: "RBAC authentication service",
	Long: `rbac-auth issues access and refresh tokens, keeps refresh sessions in a
key-value cache and enforces role based permissions keyed by METHOD:path codes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initdbCmd)
	rootCmd.AddCommand(rsakeysCmd)
}

// loadConfig reads .env and the environment and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	l := logging.New(cfg.LogLevel).With("env", string(cfg.Environment))
	slog.SetDefault(l)
	return cfg, l, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
