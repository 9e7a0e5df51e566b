package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/server"
	"github.com/alfredjeanlab/kalender/internal/store"
	"github.com/alfredjeanlab/kalender/internal/store/postgres"
	ksync "github.com/alfredjeanlab/kalender/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the calendar web server",
	GroupID: "site",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m := metrics.New()

		// Pages read from the mirror when one is configured, else straight
		// from the content store.
		var reader store.Reader = contentstore.New(cfg.ContentStore())
		var mirror store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() {
				if err := pg.Close(); err != nil {
					logger.Error("error closing store", "err", err)
				}
			}()
			mirror = pg
			reader = pg
			logger.Info("reading from postgres mirror")
		}

		publisher, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()
		if cfg.NATSURL != "" {
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (KALENDER_NATS_URL not set)")
		}

		// Start the sync scheduler when there is somewhere to sync to.
		var scheduler *ksync.Scheduler
		if cfg.SyncEnabled() {
			s, err := newSyncer(cmd.Context(), cfg, mirror, publisher, m)
			if err != nil {
				return err
			}
			if s.Mirror != nil || len(s.Destinations) > 0 {
				scheduler, err = ksync.NewScheduler(s, cfg.SyncSchedule, logger)
				if err != nil {
					return err
				}
				scheduler.Start()
				logger.Info("sync scheduler started", "schedule", cfg.SyncSchedule)
			} else {
				logger.Info("sync disabled (no mirror or destinations configured)")
			}
		}

		opts := server.Options{
			Location:   cfg.Location,
			PageSize:   cfg.PageSize,
			CacheTTL:   cfg.CacheTTL,
			AdminToken: cfg.AdminToken,
			Metrics:    m,
			Logger:     logger,
		}
		if scheduler != nil {
			opts.Sync = scheduler
		}
		srv, err := server.New(reader, opts)
		if err != nil {
			return err
		}

		// Relay store change notifications to SSE clients and the page cache.
		var watchCancel context.CancelFunc
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create notification subscriber", "err", err)
			} else {
				var watchCtx context.Context
				watchCtx, watchCancel = context.WithCancel(context.Background())
				go func() {
					if err := srv.WatchNotifications(watchCtx, sub); err != nil {
						logger.Error("notification subscriber error", "err", err)
					}
					sub.Close()
				}()
				logger.Info("notification subscriber started")
			}
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("kalender server started",
			"http_addr", cfg.HTTPAddr,
			"project", cfg.ProjectID,
			"dataset", cfg.Dataset,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if watchCancel != nil {
			watchCancel()
			logger.Info("notification subscriber stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		logger.Info("shutdown complete")
		return nil
	},
}
