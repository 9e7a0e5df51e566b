package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Print migration and sync notifications as they arrive",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")

		natsURL := os.Getenv("KALENDER_NATS_URL")
		if natsURL == "" {
			if r, _, err := selectedRemote(remoteName); err == nil && r != nil {
				natsURL = r.NATSURL
			}
		}
		if natsURL == "" {
			return fmt.Errorf("KALENDER_NATS_URL is not set and the remote has no nats_url")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats: disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
		defer cancel()

		logger.Info("watching", "topic", topic)
		return watchLoop(ctx, ch, cmd.OutOrStdout(), time.Now)
	},
}

// watchLoop prints every payload from ch until ctx is done or ch closes.
func watchLoop(ctx context.Context, ch <-chan []byte, w io.Writer, now func() time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			printNotification(w, data, now())
		}
	}
}

// printNotification writes one payload. Plain output is a timestamped
// summary; --json writes the payload unchanged.
func printNotification(w io.Writer, data []byte, at time.Time) {
	if jsonOutput {
		fmt.Fprintln(w, string(data))
		return
	}
	var n struct {
		EventID string `json:"event_id"`
		Title   string `json:"title"`
		Command string `json:"command"`
		Error   string `json:"error"`
		Events  *int   `json:"events"`
		Created *int   `json:"created"`
		AssetID string `json:"asset_id"`
	}
	stamp := ui.RenderMuted(at.Format("15:04:05"))
	if err := json.Unmarshal(data, &n); err != nil {
		fmt.Fprintf(w, "%s %s\n", stamp, string(data))
		return
	}
	switch {
	case n.Error != "" && n.EventID != "":
		fmt.Fprintf(w, "%s %s %s %s: %s\n", stamp, ui.RenderFailure(ui.MarkFailure), n.Command, ui.Truncate(n.Title, 50), n.Error)
	case n.AssetID != "":
		fmt.Fprintf(w, "%s %s bilde %s → %s\n", stamp, ui.RenderSuccess(ui.MarkUp), n.EventID, n.AssetID)
	case n.Command != "":
		fmt.Fprintf(w, "%s %s %s %s\n", stamp, ui.RenderSuccess(ui.MarkSuccess), n.Command, ui.Truncate(n.Title, 50))
	case n.Created != nil:
		fmt.Fprintf(w, "%s %s import %s\n", stamp, ui.RenderSuccess(ui.MarkSuccess), string(data))
	case n.Events != nil:
		mark, line := ui.RenderSuccess(ui.MarkDown), fmt.Sprintf("sync %d arrangementer", *n.Events)
		if n.Error != "" {
			mark, line = ui.RenderFailure(ui.MarkFailure), line+": "+n.Error
		}
		fmt.Fprintf(w, "%s %s %s\n", stamp, mark, line)
	default:
		fmt.Fprintf(w, "%s %s\n", stamp, string(data))
	}
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "subject pattern to watch")
}
