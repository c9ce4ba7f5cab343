package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pushwatch/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pushwatch configuration file without contacting the
tracking server.

This command parses the YAML, expands environment variables, and validates
all fields.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pushwatch validate -c pushwatch.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := loadEnv(cmd); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	w, err := config.BuildWatcher(cfg, nil)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	polling := "every " + cfg.PollInterval.Duration().String()
	if w.Suppressed() {
		polling = "suppressed (noreload)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Push:     %s\n", w.PushURL())
	fmt.Fprintf(out, "  Endpoint: %s\n", w.Endpoint())
	fmt.Fprintf(out, "  Polling:  %s\n", polling)
	fmt.Fprintf(out, "  Port:     %d\n", cfg.Port)

	return nil
}
