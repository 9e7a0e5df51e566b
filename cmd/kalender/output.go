package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/richtext"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

const dateLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func formatWhen(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(dateLayout)
}

// contentKind names the body variant an event carries.
func contentKind(ev *model.Event) string {
	switch c := ev.Content.(type) {
	case model.RawHTML:
		return "html"
	case model.Blocks:
		return fmt.Sprintf("%d blokker", len(c))
	default:
		return "-"
	}
}

func printEventTable(w io.Writer, evs []model.Event, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tSLUG\tCATEGORY\tCONTENT\tTITLE")
	for i := range evs {
		ev := &evs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatWhen(ev.StartDate, loc),
			ev.Slug,
			model.CategoryLabel(ev.Category),
			contentKind(ev),
			ui.Truncate(ev.Title, 50),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d arrangementer\n", len(evs))
}

func printEventDetail(w io.Writer, ev *model.Event, loc *time.Location) {
	fmt.Fprintf(w, "ID:          %s\n", ev.ID)
	fmt.Fprintf(w, "Slug:        %s\n", ev.Slug)
	fmt.Fprintf(w, "Title:       %s\n", ui.RenderAccent(ev.Title))
	if ev.Category != "" {
		fmt.Fprintf(w, "Category:    %s\n", model.CategoryLabel(ev.Category))
	}
	if len(ev.Areas) > 0 {
		fmt.Fprintf(w, "Areas:       %s\n", strings.Join(ev.Areas, ", "))
	}
	fmt.Fprintf(w, "Start:       %s\n", formatWhen(ev.StartDate, loc))
	fmt.Fprintf(w, "End:         %s\n", formatWhen(ev.EndDate, loc))
	if ev.Location != "" {
		fmt.Fprintf(w, "Location:    %s\n", ev.Location)
	}
	if ev.Organizer != "" {
		fmt.Fprintf(w, "Organizer:   %s\n", ev.Organizer)
	}
	if ev.TicketLink != "" {
		fmt.Fprintf(w, "Tickets:     %s (%s)\n", ev.TicketLink, ev.TicketText())
	}
	if url, _ := ev.DisplayImage(); url != "" {
		fmt.Fprintf(w, "Image:       %s\n", url)
	}
	fmt.Fprintf(w, "Content:     %s\n", contentKind(ev))
	if ev.IntroText != "" {
		fmt.Fprintf(w, "\n%s\n", ev.IntroText)
	}
	if blocks, err := richtext.ContentBlocks(ev.Content); err == nil && len(blocks) > 0 {
		fmt.Fprintf(w, "\n%s\n", richtext.PlainText(blocks))
	}
}
