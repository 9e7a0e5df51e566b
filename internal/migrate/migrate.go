// Package migrate holds the batch jobs that rewrite event records in the
// content store: HTML to rich-text conversion, CSV backfill of missing
// bodies, image upload and bulk import.
//
// Every job walks its records strictly in order. A failure on one record is
// reported, counted and skipped; only a failure to list the records aborts
// the job.
package migrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/richtext"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

// Command names, used in metrics labels and notifications.
const (
	CommandHTMLToRichText = "html-to-richtext"
	CommandFixContent     = "fix-content"
	CommandUploadImages   = "upload-images"
	CommandImport         = "import"
)

// titleWidth is how many runes of a title progress lines show.
const titleWidth = 60

// Store is the part of the content store the jobs read and write.
type Store interface {
	ListLegacyHTML(ctx context.Context) ([]contentstore.LegacyRecord, error)
	ListContentState(ctx context.Context) ([]contentstore.ContentState, error)
	ListImageURLs(ctx context.Context) ([]contentstore.ImageRecord, error)
	Patch(ctx context.Context, p contentstore.Patch) error
	CreateOrReplace(ctx context.Context, events []model.Event) (*contentstore.MutationResult, error)
	UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

var _ Store = (*contentstore.Client)(nil)

// ConvertFunc turns an HTML fragment into rich-text blocks.
type ConvertFunc func(html string) (model.Blocks, error)

// DefaultConvert converts with richtext.DefaultSchema.
func DefaultConvert(html string) (model.Blocks, error) {
	return richtext.Convert(html, richtext.DefaultSchema)
}

// Migrator runs the jobs against a Store. Only Store is required.
type Migrator struct {
	Store     Store
	Convert   ConvertFunc
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// Out receives the human-readable progress lines.
	Out io.Writer
	// DryRun converts and reports without writing to the store.
	DryRun bool
}

// Result counts per-record outcomes of a job.
type Result struct {
	Converted int
	NotFound  int
	Failed    int
}

func (m *Migrator) convert(html string) (model.Blocks, error) {
	conv := m.Convert
	if conv == nil {
		conv = DefaultConvert
	}
	blocks, err := conv(html)
	if err != nil {
		return nil, err
	}
	return richtext.AssignKeys(blocks), nil
}

func (m *Migrator) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

func (m *Migrator) printf(format string, args ...any) {
	if m.Out == nil {
		return
	}
	fmt.Fprintf(m.Out, format, args...)
}

// publish sends a notification; failures are logged and otherwise ignored.
func (m *Migrator) publish(ctx context.Context, topic string, event any) {
	if m.Publisher == nil {
		return
	}
	if err := m.Publisher.Publish(ctx, topic, event); err != nil {
		m.logger().Warn("publish failed", "topic", topic, "err", err)
	}
}

// succeeded records a converted record.
func (m *Migrator) succeeded(ctx context.Context, command, id, title string, blocks int) {
	m.printf("%s\n", ui.RenderSuccess(fmt.Sprintf("%s (%d blokker)", ui.MarkSuccess, blocks)))
	m.logger().Info("record converted", "command", command, "id", id, "blocks", blocks, "dry_run", m.DryRun)
	m.Metrics.MigrationRecord(command, metrics.OutcomeConverted)
	m.publish(ctx, events.TopicEventMigrated, events.EventMigrated{
		EventID: id, Title: title, Command: command, Blocks: blocks, DryRun: m.DryRun,
	})
}

// failed records a record that could not be converted or written.
func (m *Migrator) failed(ctx context.Context, command, id, title string, err error) {
	m.printf("%s\n", ui.RenderFailure(ui.MarkFailure+" "+err.Error()))
	m.logger().Error("record failed", "command", command, "id", id, "title", ui.Truncate(title, titleWidth), "err", err)
	m.Metrics.MigrationRecord(command, metrics.OutcomeFailed)
	m.publish(ctx, events.TopicEventMigrationFailed, events.EventMigrationFailed{
		EventID: id, Title: title, Command: command, Error: err.Error(),
	})
}

func (m *Migrator) patch(ctx context.Context, p contentstore.Patch) error {
	if m.DryRun {
		return nil
	}
	return m.Store.Patch(ctx, p)
}
