// Package cmd implements the crewd command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crewd/internal/config"
)

var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crewd",
		Short: "crewd runs teams of proactive AI agents",
		Long: "crewd is an agent runtime: a reasoning loop with tools, per-agent\n" +
			"heartbeat scheduling, model routing with fallback, and credit metering.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.crewd/config.yaml)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(teamsCmd())
	cmd.AddCommand(agentsCmd())
	cmd.AddCommand(chatCmd())
	cmd.AddCommand(approvalsCmd())
	cmd.AddCommand(creditsCmd())
	cmd.AddCommand(modelsCmd())
	cmd.AddCommand(doctorCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if os.Getenv("CREWD_DEBUG") != "" {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if v := os.Getenv("CREWD_CONFIG"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".crewd", "config.yaml")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
