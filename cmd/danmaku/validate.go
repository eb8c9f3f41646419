package main

import (
	"fmt"

	"github.com/jpalmerr/danmaku/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a danmaku configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields, including every source's decoder. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  danmaku validate -c config.yaml
  danmaku validate --config /etc/danmaku/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// builds every decoder, catching what parsing alone cannot
	if _, err := config.BuildOptions(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	storage := cfg.Storage.Driver
	if cfg.Storage.Driver == config.DriverSQLite {
		storage += " (" + cfg.Storage.Path + ")"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Storage:       %s\n", storage)
	fmt.Fprintf(out, "  Feed interval: %s\n", cfg.Feed.Interval.Duration())
	fmt.Fprintf(out, "  Sources:       %d\n", len(cfg.Feed.Sources))

	return nil
}
