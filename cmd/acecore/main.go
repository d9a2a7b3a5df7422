// ACE Core - filament changer state service
//
// This is the main entry point for the acecore daemon. acecore keeps a
// reconciled view of an ACE filament changer (slots, loaded tool, dryer,
// endless spool), dispatches G-code commands to its firmware, persists
// slot inventory and serves it over HTTP, WebSocket and MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Running the binary without a
// subcommand starts the daemon.
func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "acecore",
		Short:         "ACE filament changer state service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $ACECORE_CONFIG or "+defaultConfigPath+")")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(configPath))
		},
	}

	root.AddCommand(serve, newClassifyCommand(), newTokenCommand(&configPath), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "acecore %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// getConfigPath returns the configuration file path.
// An explicit flag wins, then ACECORE_CONFIG, then the default.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("ACECORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
