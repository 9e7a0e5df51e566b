package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Oslo must resolve on hosts without zoneinfo.

	"github.com/alfredjeanlab/kalender/internal/contentstore"
)

type Config struct {
	// Content store
	ProjectID  string // KALENDER_PROJECT_ID (required by Validate)
	Dataset    string // KALENDER_DATASET (default "production")
	APIVersion string // KALENDER_API_VERSION (default "2024-01-01")
	APIHost    string // KALENDER_API_HOST (optional base URL override)
	UseCDN     bool   // KALENDER_USE_CDN (default true)
	ReadToken  string // KALENDER_READ_TOKEN (optional, for private datasets)

	// Web
	HTTPAddr   string         // KALENDER_HTTP_ADDR (default ":8080")
	Location   *time.Location // KALENDER_TIMEZONE (default "Europe/Oslo")
	PageSize   int            // KALENDER_PAGE_SIZE (default 6)
	CacheTTL   time.Duration  // KALENDER_CACHE_TTL (default 1m; 0 = no cache)
	AdminToken string         // KALENDER_ADMIN_TOKEN (optional, empty = /api/sync disabled)

	DatabaseURL string // KALENDER_DATABASE_URL (optional, enables the mirror)
	NATSURL     string // KALENDER_NATS_URL (optional, empty = no events)

	// Sync settings
	SyncSchedule   string // KALENDER_SYNC_SCHEDULE (default "@every 5m"; "off" = disabled)
	SyncS3Bucket   string // KALENDER_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string // KALENDER_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string // KALENDER_SYNC_S3_REGION (default "eu-north-1")
	SyncS3Key      string // KALENDER_SYNC_S3_KEY (default "kalender/events.jsonl")
	SyncFile       string // KALENDER_SYNC_FILE (enables a local JSONL snapshot when set)
}

func Load() (*Config, error) {
	c := &Config{
		ProjectID:      os.Getenv("KALENDER_PROJECT_ID"),
		Dataset:        envOrDefault("KALENDER_DATASET", "production"),
		APIVersion:     envOrDefault("KALENDER_API_VERSION", "2024-01-01"),
		APIHost:        os.Getenv("KALENDER_API_HOST"),
		ReadToken:      os.Getenv("KALENDER_READ_TOKEN"),
		HTTPAddr:       envOrDefault("KALENDER_HTTP_ADDR", ":8080"),
		AdminToken:     os.Getenv("KALENDER_ADMIN_TOKEN"),
		DatabaseURL:    os.Getenv("KALENDER_DATABASE_URL"),
		NATSURL:        os.Getenv("KALENDER_NATS_URL"),
		SyncSchedule:   envOrDefault("KALENDER_SYNC_SCHEDULE", "@every 5m"),
		SyncS3Bucket:   os.Getenv("KALENDER_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("KALENDER_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("KALENDER_SYNC_S3_REGION", "eu-north-1"),
		SyncS3Key:      envOrDefault("KALENDER_SYNC_S3_KEY", "kalender/events.jsonl"),
		SyncFile:       os.Getenv("KALENDER_SYNC_FILE"),
	}

	var err error
	if c.UseCDN, err = strconv.ParseBool(envOrDefault("KALENDER_USE_CDN", "true")); err != nil {
		return nil, fmt.Errorf("KALENDER_USE_CDN: %w", err)
	}

	tz := envOrDefault("KALENDER_TIMEZONE", "Europe/Oslo")
	if c.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("KALENDER_TIMEZONE: %w", err)
	}

	if c.PageSize, err = strconv.Atoi(envOrDefault("KALENDER_PAGE_SIZE", "6")); err != nil {
		return nil, fmt.Errorf("KALENDER_PAGE_SIZE: %w", err)
	}
	if c.PageSize < 1 {
		return nil, fmt.Errorf("KALENDER_PAGE_SIZE must be positive, got %d", c.PageSize)
	}

	if c.CacheTTL, err = time.ParseDuration(envOrDefault("KALENDER_CACHE_TTL", "1m")); err != nil {
		return nil, fmt.Errorf("KALENDER_CACHE_TTL: %w", err)
	}

	return c, nil
}

// Validate checks settings that may be filled in after Load, e.g. from a
// named remote.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("KALENDER_PROJECT_ID is required (or select a remote with 'kalender remote use')")
	}
	if c.Dataset == "" {
		return fmt.Errorf("KALENDER_DATASET must not be empty")
	}
	return nil
}

// SyncEnabled reports whether the periodic sync should run.
func (c *Config) SyncEnabled() bool {
	s := strings.TrimSpace(c.SyncSchedule)
	return s != "" && s != "off"
}

// ContentStore returns the client settings for reading with the read token.
func (c *Config) ContentStore() contentstore.Config {
	return contentstore.Config{
		ProjectID:  c.ProjectID,
		Dataset:    c.Dataset,
		APIVersion: c.APIVersion,
		Host:       c.APIHost,
		UseCDN:     c.UseCDN,
		Token:      c.ReadToken,
	}
}

// WriteStore returns client settings for writing with token. Writes never go
// through the CDN.
func (c *Config) WriteStore(token string) contentstore.Config {
	cs := c.ContentStore()
	cs.UseCDN = false
	cs.Token = token
	return cs
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
