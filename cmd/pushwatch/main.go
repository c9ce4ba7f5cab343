// Package main is the entry point for the pushwatch CLI.
//
// pushwatch can be used as a library (SDK) or as a standalone binary with
// YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pushwatch watch -c config.yaml     # Watch a push and serve the mirror
//	pushwatch validate -c config.yaml  # Validate configuration
//	pushwatch request --host h ...     # Build a review request URL
//	pushwatch forms --push-url u       # Show the push page's forms
//	pushwatch version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pushwatch/config"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pushwatch",
	Short: "Follow a deployment push until it goes live",
	Long: `pushwatch keeps a push page in sync with its tracking server.

It polls the push's JSON endpoint at a fixed interval, serves a local
mirror of the page that updates live over Server-Sent Events, and stops
polling once the push is live.

Quick start:
  1. Create a config file (pushwatch.yaml)
  2. Run: pushwatch watch -c pushwatch.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  push_url: https://pushmaster.example.com/push/abc123
  poll_interval: 30s
  port: 8080`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pushwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pushwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("env-file", "", "load environment variables from this file (default: .env if present)")
}

// loadEnv loads the --env-file, or .env when the flag is unset.
func loadEnv(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return config.LoadEnv()
	}
	return config.LoadEnv(envFile)
}
