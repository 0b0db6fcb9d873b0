package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// EnvConfig points at settings.json when --config is not given.
const EnvConfig = "CINEMAX_CONFIG"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "cinemax",
	Short:         "cinemax builds and serves a streaming catalog from TMDB metadata",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to settings.json (default $"+EnvConfig+" or cache/settings.json)")
}

// Execute runs the root command until it finishes or the process is signalled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if p := strings.TrimSpace(configPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return filepath.Join("cache", "settings.json")
}
