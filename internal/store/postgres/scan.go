package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// Values of the content_kind column.
const (
	contentNone   = ""
	contentHTML   = "html"
	contentBlocks = "blocks"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var ev model.Event
	var (
		areas       pq.StringArray
		startDate   sql.NullTime
		endDate     sql.NullTime
		image       []byte
		contentKind string
		content     []byte
		updatedAt   sql.NullTime
	)

	err := row.Scan(
		&ev.ID,
		&ev.Slug,
		&ev.Title,
		&ev.Category,
		&areas,
		&startDate,
		&endDate,
		&ev.Location,
		&ev.Organizer,
		&ev.IntroText,
		&ev.TicketLink,
		&ev.TicketLinkText,
		&image,
		&ev.ImageURL,
		&ev.ImageAlt,
		&contentKind,
		&content,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(areas) > 0 {
		ev.Areas = []string(areas)
	}
	ev.StartDate = startDate.Time
	ev.EndDate = endDate.Time
	ev.UpdatedAt = updatedAt.Time

	if len(image) > 0 {
		var img model.Image
		if err := json.Unmarshal(image, &img); err != nil {
			return nil, fmt.Errorf("decode image of %s: %w", ev.ID, err)
		}
		ev.Image = &img
	}

	ev.Content, err = decodeContent(contentKind, content)
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", ev.ID, err)
	}
	return &ev, nil
}

// encodeContent splits a content variant into its kind tag and JSONB value.
func encodeContent(c model.Content) (string, []byte, error) {
	switch v := c.(type) {
	case nil:
		return contentNone, nil, nil
	case model.RawHTML:
		data, err := json.Marshal(string(v))
		return contentHTML, data, err
	case model.Blocks:
		data, err := json.Marshal(v)
		return contentBlocks, data, err
	default:
		return "", nil, fmt.Errorf("unknown content type %T", c)
	}
}

func decodeContent(kind string, data []byte) (model.Content, error) {
	switch kind {
	case contentNone:
		return nil, nil
	case contentHTML:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return model.RawHTML(s), nil
	case contentBlocks:
		var b model.Blocks
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
}

// encodeImage converts an image reference to JSONB bytes; nil stays NULL.
func encodeImage(img *model.Image) ([]byte, error) {
	if img == nil {
		return nil, nil
	}
	return json.Marshal(img)
}

// nullTime converts a time.Time to a sql.NullTime; the zero time is null.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
