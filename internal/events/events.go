package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicEventMigrated        = "kalender.event.migrated"
	TopicEventMigrationFailed = "kalender.event.migration_failed"
	TopicEventImported        = "kalender.event.imported"
	TopicImageUploaded        = "kalender.image.uploaded"
	TopicSyncCompleted        = "kalender.sync.completed"

	// TopicAll matches every subject this service publishes.
	TopicAll = "kalender.>"
)

// Event types

// EventMigrated is published after a record's content was written.
type EventMigrated struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Command string `json:"command"`
	Blocks  int    `json:"blocks"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// EventMigrationFailed is published when a record could not be converted or
// written.
type EventMigrationFailed struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

type EventsImported struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type ImageUploaded struct {
	EventID string `json:"event_id"`
	AssetID string `json:"asset_id"`
	Bytes   int    `json:"bytes"`
}

type SyncCompleted struct {
	Events   int           `json:"events"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
