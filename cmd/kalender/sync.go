package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alfredjeanlab/kalender/internal/client"
	"github.com/alfredjeanlab/kalender/internal/config"
	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/store"
	"github.com/alfredjeanlab/kalender/internal/store/postgres"
	ksync "github.com/alfredjeanlab/kalender/internal/sync"
	"github.com/spf13/cobra"
)

// syncDestinations returns the snapshot destinations configured in cfg.
func syncDestinations(ctx context.Context, cfg *config.Config) ([]ksync.Destination, error) {
	var dests []ksync.Destination
	if cfg.SyncS3Bucket != "" {
		d, err := ksync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("S3 sync destination: %w", err)
		}
		dests = append(dests, d)
		logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
	}
	if cfg.SyncFile != "" {
		dests = append(dests, &ksync.FileDestination{Path: cfg.SyncFile})
		logger.Info("sync file destination enabled", "path", cfg.SyncFile)
	}
	return dests, nil
}

// newSyncer wires a syncer from the remote store into mirror (may be nil)
// and the configured destinations.
func newSyncer(ctx context.Context, cfg *config.Config, mirror store.Store, pub events.Publisher, m *metrics.Metrics) (*ksync.Syncer, error) {
	dests, err := syncDestinations(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ksync.Syncer{
		Source:       contentstore.New(cfg.ContentStore()),
		Mirror:       mirror,
		Destinations: dests,
		Publisher:    pub,
		Metrics:      m,
		Logger:       logger,
	}, nil
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Mirror the store to Postgres and write a JSONL snapshot once",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
			token, _ := cmd.Flags().GetString("admin-token")
			return triggerRemoteSync(cmd, serverURL, token)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var mirror store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			mirror = pg
		}

		pub, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer pub.Close()

		s, err := newSyncer(ctx, cfg, mirror, pub, nil)
		if err != nil {
			return err
		}
		if s.Mirror == nil && len(s.Destinations) == 0 {
			return fmt.Errorf("nothing to sync: set KALENDER_DATABASE_URL, KALENDER_SYNC_S3_BUCKET or KALENDER_SYNC_FILE")
		}

		res, err := s.RunOnce(ctx)
		if res != nil {
			if jsonOutput {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			} else {
				printSyncSummary(cmd.OutOrStdout(), res.Events, res.Removed, res.Bytes, res.Duration.Round(time.Millisecond).String())
			}
		}
		return err
	},
}

// triggerRemoteSync asks a running server to sync instead of syncing here.
func triggerRemoteSync(cmd *cobra.Command, serverURL, token string) error {
	res, err := client.NewHTTPClient(serverURL, token).TriggerSync(cmd.Context())
	if err != nil {
		return fmt.Errorf("triggering sync on %s: %w", serverURL, err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printSyncSummary(cmd.OutOrStdout(), res.Events, res.Removed, res.Bytes, res.Duration)
	return nil
}

func printSyncSummary(w io.Writer, events int, removed int64, bytes int, took string) {
	fmt.Fprintf(w, "%d arrangementer, %d fjernet, %d bytes på %s\n", events, removed, bytes, took)
}

func init() {
	syncCmd.Flags().String("server", "", "trigger the sync on a running server instead (e.g. http://localhost:8080)")
	syncCmd.Flags().String("admin-token", os.Getenv("KALENDER_ADMIN_TOKEN"), "bearer token for --server")
}
