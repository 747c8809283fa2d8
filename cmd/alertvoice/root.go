package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/alertvoice/internal/config"
)

var (
	cfgFile   string
	activeCfg config.Config
)

// NewRootCmd builds the alertvoice CLI, following the config loading and
// logger-setup pattern shared across the corpus's cobra-based tools.
func NewRootCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "alertvoice",
		Short: "Event-to-audio delivery for streaming monetization alerts",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newTokensCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogger(levelStr string) {
	lvl, err := parseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func requireConfig() (config.Config, error) {
	if activeCfg.ListenAddr == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}
