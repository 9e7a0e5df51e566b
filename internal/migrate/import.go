package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/kalender/internal/csvimport"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Created int
	Updated int
	// Skipped rows could not be mapped to a valid event.
	Skipped int
}

// Import maps rows to events and writes all valid ones with a single
// createOrReplace transaction. Rows that fail mapping or validation are
// reported and skipped. Dates without an offset are read in loc.
func (m *Migrator) Import(ctx context.Context, rows []csvimport.Row, source string, loc *time.Location) (ImportResult, error) {
	var res ImportResult
	m.printf("Leser %d arrangementer fra %s...\n", len(rows), source)

	evs := make([]model.Event, 0, len(rows))
	for i, row := range rows {
		ev, err := csvimport.BuildEvent(row, loc)
		if err == nil {
			err = model.ValidateEvent(&ev)
		}
		if err != nil {
			// Header is line 1.
			m.printf("  %s\n", ui.RenderFailure(fmt.Sprintf("%s Rad %d (%s): %v", ui.MarkFailure, i+2, ui.Truncate(row[csvimport.ColTitle], titleWidth), err)))
			m.logger().Warn("skipping import row", "row", i+2, "err", err)
			m.Metrics.MigrationRecord(CommandImport, metrics.OutcomeSkipped)
			res.Skipped++
			continue
		}
		evs = append(evs, ev)
	}

	if len(evs) == 0 {
		m.printf("Ingen gyldige arrangementer å importere\n")
		return res, nil
	}
	if m.DryRun {
		m.printf("%s\n", ui.RenderNotice(fmt.Sprintf("Tørrkjøring: %d arrangementer ville blitt importert", len(evs))))
		return res, nil
	}

	out, err := m.Store.CreateOrReplace(ctx, evs)
	if err != nil {
		m.printf("%s\n", ui.RenderFailure(ui.MarkFailure+" "+err.Error()))
		return res, fmt.Errorf("importing %d events: %w", len(evs), err)
	}
	res.Created = out.Count("create")
	res.Updated = out.Count("update")
	for range evs {
		m.Metrics.MigrationRecord(CommandImport, metrics.OutcomeConverted)
	}

	m.printf("%s\n", ui.RenderSuccess(fmt.Sprintf("%s Importert: %d nye, %d oppdatert", ui.MarkSuccess, res.Created, res.Updated)))
	m.logger().Info("import committed", "transaction", out.TransactionID, "created", res.Created, "updated", res.Updated, "skipped", res.Skipped)
	m.publish(ctx, events.TopicEventImported, events.EventsImported{
		Created: res.Created, Updated: res.Updated, Skipped: res.Skipped,
	})
	return res, nil
}
