package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/kalender/internal/config"
	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/csvimport"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/migrate"
	"github.com/alfredjeanlab/kalender/internal/ui"
	"github.com/spf13/cobra"
)

var dryRun bool

// runMigration builds a Migrator writing with token, runs fn under a context
// cancelled by SIGINT or SIGTERM, and closes the publisher afterwards.
func runMigration(cmd *cobra.Command, token string, fn func(ctx context.Context, m *migrate.Migrator, cfg *config.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pub, err := events.NewPublisher(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer pub.Close()

	m := &migrate.Migrator{
		Store:     contentstore.New(cfg.WriteStore(token)),
		Publisher: pub,
		Logger:    logger.With("command", cmd.Name()),
		Out:       cmd.OutOrStdout(),
		DryRun:    dryRun,
	}
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderNotice("Tørrkjøring: ingen endringer skrives"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, m, cfg)
}

var htmlToRichTextCmd = &cobra.Command{
	Use:     migrate.CommandHTMLToRichText + " <sanity-write-token>",
	Short:   "Convert every legacy HTML body to rich-text blocks",
	GroupID: "migrate",
	Args:    usageArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, args[0], func(ctx context.Context, m *migrate.Migrator, _ *config.Config) error {
			_, err := m.MigrateLegacyHTML(ctx)
			return err
		})
	},
}

var fixContentCmd = &cobra.Command{
	Use:     migrate.CommandFixContent + " <csv-fil> <sanity-write-token>",
	Short:   "Fill events without a body from a CSV export, matched by title",
	GroupID: "migrate",
	Args:    usageArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := csvimport.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runMigration(cmd, args[1], func(ctx context.Context, m *migrate.Migrator, _ *config.Config) error {
			_, err := m.FixMissingContent(ctx, rows)
			return err
		})
	},
}

var importCmd = &cobra.Command{
	Use:     migrate.CommandImport + " <csv-fil> <sanity-write-token>",
	Short:   "Create or replace events from a CSV export",
	GroupID: "migrate",
	Args:    usageArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := csvimport.ReadFile(args[0])
		if err != nil {
			return err
		}
		return runMigration(cmd, args[1], func(ctx context.Context, m *migrate.Migrator, cfg *config.Config) error {
			_, err := m.Import(ctx, rows, args[0], cfg.Location)
			return err
		})
	},
}

var uploadImagesCmd = &cobra.Command{
	Use:     migrate.CommandUploadImages + " <sanity-write-token>",
	Short:   "Move external event images into the store as assets",
	GroupID: "migrate",
	Args:    usageArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, args[0], func(ctx context.Context, m *migrate.Migrator, _ *config.Config) error {
			_, err := m.UploadImages(ctx, migrate.NewHTTPFetcher())
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{htmlToRichTextCmd, fixContentCmd, importCmd, uploadImagesCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "convert and report without writing")
	}
}
