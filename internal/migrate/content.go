package migrate

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/csvimport"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

// MigrateLegacyHTML converts every record that still has the HTML field.
// Each record gets one patch that sets the block body and unsets the HTML.
func (m *Migrator) MigrateLegacyHTML(ctx context.Context) (Result, error) {
	var res Result
	recs, err := m.Store.ListLegacyHTML(ctx)
	if err != nil {
		return res, fmt.Errorf("listing records with html: %w", err)
	}
	m.printf("Fant %d events med HTML-innhold\n\n", len(recs))

	var stopped error
	for _, rec := range recs {
		if stopped = ctx.Err(); stopped != nil {
			break
		}
		m.printf("  Konverterer: %s... ", ui.Truncate(rec.Title, titleWidth))

		blocks, err := m.convert(rec.HTML)
		if err == nil {
			err = m.patch(ctx, contentstore.Patch{
				ID:    rec.ID,
				Set:   map[string]any{"content": blocks},
				Unset: []string{"htmlContent"},
			})
		}
		if err != nil {
			m.failed(ctx, CommandHTMLToRichText, rec.ID, rec.Title, err)
			res.Failed++
			continue
		}
		m.succeeded(ctx, CommandHTMLToRichText, rec.ID, rec.Title, len(blocks))
		res.Converted++
	}

	m.printf("\nFullført: %d konvertert, %d feilet\n", res.Converted, res.Failed)
	return res, stopped
}

// FixMissingContent fills records that have no block body with HTML looked
// up by exact title in rows. Records without a match are counted as NotFound
// and left alone.
func (m *Migrator) FixMissingContent(ctx context.Context, rows []csvimport.Row) (Result, error) {
	var res Result
	m.printf("CSV: %d rader lest\n\n", len(rows))
	index := csvimport.TitleIndex(rows)
	m.printf("%d rader med HTML-innhold\n\n", len(index))

	states, err := m.Store.ListContentState(ctx)
	if err != nil {
		return res, fmt.Errorf("listing content state: %w", err)
	}
	var missing []contentstore.ContentState
	for _, s := range states {
		if !s.HasContent {
			missing = append(missing, s)
		}
	}
	m.printf("Lager: %d events totalt, %d mangler innhold\n\n", len(states), len(missing))

	var stopped error
	for _, rec := range missing {
		if stopped = ctx.Err(); stopped != nil {
			break
		}
		html, ok := index[rec.Title]
		if !ok {
			m.printf("  %s\n", ui.RenderNotice(ui.MarkSkipped+" Ingen CSV-treff: "+ui.Truncate(rec.Title, titleWidth)))
			m.logger().Debug("no csv match", "id", rec.ID, "title", rec.Title)
			m.Metrics.MigrationRecord(CommandFixContent, metrics.OutcomeNotFound)
			res.NotFound++
			continue
		}

		m.printf("  Konverterer: %s... ", ui.Truncate(rec.Title, titleWidth))
		blocks, err := m.convert(html)
		if err == nil {
			err = m.patch(ctx, contentstore.Patch{
				ID:  rec.ID,
				Set: map[string]any{"content": blocks},
			})
		}
		if err != nil {
			m.failed(ctx, CommandFixContent, rec.ID, rec.Title, err)
			res.Failed++
			continue
		}
		m.succeeded(ctx, CommandFixContent, rec.ID, rec.Title, len(blocks))
		res.Converted++
	}

	m.printf("\nFullført: %d konvertert, %d ingen CSV-treff, %d feilet\n", res.Converted, res.NotFound, res.Failed)
	return res, stopped
}
