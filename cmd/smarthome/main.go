// Command smarthome interprets natural-language smart home commands received
// over HTTP or Matrix and applies them to the device store.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smart-home-bot/config"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smarthome",
	Short: "Natural-language smart home command interpreter",
	Long: `smarthome turns chat messages such as "turn off the kitchen light" into
device changes. It classifies each message, extracts a structured command with
an LLM, resolves the device by embedding similarity and updates the store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd, askCmd, seedCmd, linkCmd)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupLogger(cfg.Log), nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseDuration(logger *slog.Logger, name, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "setting", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}
