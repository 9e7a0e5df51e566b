package store

import (
	"context"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// Reader is the read side the web server needs. Both the remote content
// store client and the Postgres mirror satisfy it.
type Reader interface {
	// ListEvents returns all events ordered by start date.
	ListEvents(ctx context.Context) ([]model.Event, error)
	// GetEventBySlug returns nil, nil when no event has the slug.
	GetEventBySlug(ctx context.Context, slug string) (*model.Event, error)
}

// Store defines the persistence interface for the local event mirror.
type Store interface {
	Reader

	// UpsertEvent inserts ev or replaces the row with the same ID.
	UpsertEvent(ctx context.Context, ev *model.Event) error
	// DeleteEventsExcept removes every event whose ID is not in keep and
	// returns how many rows were removed.
	DeleteEventsExcept(ctx context.Context, keep []string) (int64, error)
	// CountEvents returns the number of mirrored events.
	CountEvents(ctx context.Context) (int, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
