package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, slug, title, category, areas, start_date, end_date,
	location, organizer, intro_text, ticket_link, ticket_link_text,
	image, image_url, image_alt, content_kind, content, source_updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListEvents(ctx context.Context, db executor) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_date ASC NULLS LAST, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func queryGetEventBySlug(ctx context.Context, db executor, slug string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1 ORDER BY id LIMIT 1`, slug)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %q: %w", slug, err)
	}
	return ev, nil
}

func queryUpsertEvent(ctx context.Context, db executor, ev *model.Event) error {
	kind, content, err := encodeContent(ev.Content)
	if err != nil {
		return fmt.Errorf("encode content for %s: %w", ev.ID, err)
	}
	image, err := encodeImage(ev.Image)
	if err != nil {
		return fmt.Errorf("encode image for %s: %w", ev.ID, err)
	}
	areas := ev.Areas
	if areas == nil {
		areas = []string{}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO events (
			id, slug, title, category, areas, start_date, end_date,
			location, organizer, intro_text, ticket_link, ticket_link_text,
			image, image_url, image_alt, content_kind, content, source_updated_at, synced_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			areas = EXCLUDED.areas,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			location = EXCLUDED.location,
			organizer = EXCLUDED.organizer,
			intro_text = EXCLUDED.intro_text,
			ticket_link = EXCLUDED.ticket_link,
			ticket_link_text = EXCLUDED.ticket_link_text,
			image = EXCLUDED.image,
			image_url = EXCLUDED.image_url,
			image_alt = EXCLUDED.image_alt,
			content_kind = EXCLUDED.content_kind,
			content = EXCLUDED.content,
			source_updated_at = EXCLUDED.source_updated_at,
			synced_at = NOW()`,
		ev.ID,
		ev.Slug,
		ev.Title,
		ev.Category,
		pq.Array(areas),
		nullTime(ev.StartDate),
		nullTime(ev.EndDate),
		ev.Location,
		ev.Organizer,
		ev.IntroText,
		ev.TicketLink,
		ev.TicketLinkText,
		image,
		ev.ImageURL,
		ev.ImageAlt,
		kind,
		content,
		nullTime(ev.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	return nil
}

func queryDeleteEventsExcept(ctx context.Context, db executor, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE NOT (id = ANY($1))`, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("delete stale events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale events: %w", err)
	}
	return n, nil
}

func queryCountEvents(ctx context.Context, db executor) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
