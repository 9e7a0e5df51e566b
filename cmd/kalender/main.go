package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alfredjeanlab/kalender/internal/config"
	"github.com/alfredjeanlab/kalender/internal/ui"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	noColor    bool
	jsonOutput bool
	remoteName string

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "kalender <command>",
	Short: "Event calendar site and content migration tools",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Arguments are valid by now; later errors are not usage errors.
		cmd.SilenceUsage = true

		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
}

// loadConfig reads the environment and fills store settings left empty from
// the selected remote (--remote, or the active one).
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	r, name, err := selectedRemote(remoteName)
	if err != nil {
		return nil, err
	}
	if r != nil {
		applyRemote(cfg, *r)
		logger.Debug("using remote", "name", name, "project", cfg.ProjectID, "dataset", cfg.Dataset)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// usageArgs is cobra.ExactArgs with the command's usage line as the error.
func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("Bruk: %s", strings.TrimSpace(cmd.UseLine()))
		}
		return nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("KALENDER_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&remoteName, "remote", "", "named remote to use instead of the active one")

	rootCmd.AddGroup(
		&cobra.Group{ID: "site", Title: "Site:"},
		&cobra.Group{ID: "migrate", Title: "Migrations:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Site
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)

	// Migrations
	rootCmd.AddCommand(htmlToRichTextCmd)
	rootCmd.AddCommand(fixContentCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(uploadImagesCmd)

	// System
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
