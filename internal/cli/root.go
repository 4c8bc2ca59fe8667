// Package cli is the parcelhop command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"parcelhop/internal/config"
	"parcelhop/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:           "parcelhop",
	Short:         "Shipment matching and escrow engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(tokenCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadEnv reads configuration and installs the process logger.
func loadEnv() (config.Env, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, err
	}
	slog.SetDefault(utils.NewLogger(env.LogLevel))
	return env, nil
}
