package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chanlink/chanlink/internal/config"
)

// app carries the loaded configuration and logger into subcommands.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	var envFile string
	a := &app{}

	root := &cobra.Command{
		Use:           "chanlink",
		Short:         "Channel catalog reconciliation for IPTV playlists and XMLTV guides",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			a.cfg = config.Load()
			a.log = newLogger(a.cfg.LogLevel)
			slog.SetDefault(a.log)
			return a.cfg.EnsureDirs()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading configuration")

	root.AddCommand(newPruneCommand(a))
	root.AddCommand(newPruneEPGCommand(a))
	root.AddCommand(newMatchCommand(a))
	root.AddCommand(newFetchCommand(a))
	root.AddCommand(newGrabCommand(a))
	root.AddCommand(newSourcesCommand(a))
	root.AddCommand(newRefreshCommand(a))
	root.AddCommand(newServeCommand(a))
	return root
}

// newLogger builds the process logger: human-readable text on a
// terminal, JSON when output is captured.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
