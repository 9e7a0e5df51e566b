package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/kalender/internal/contentstore"
	"github.com/alfredjeanlab/kalender/internal/events"
	"github.com/alfredjeanlab/kalender/internal/metrics"
	"github.com/alfredjeanlab/kalender/internal/ui"
)

// Fetcher downloads the bytes at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads over HTTP. Some image hosts reject requests without
// a browser-like User-Agent.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher returns a fetcher with a 30 second timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Mozilla/5.0",
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	return data, nil
}

// mimeTypes is checked in order against the lowercased URL path.
var mimeTypes = []struct{ ext, mime string }{
	{".jpg", "image/jpeg"},
	{".jpeg", "image/jpeg"},
	{".png", "image/png"},
	{".webp", "image/webp"},
	{".gif", "image/gif"},
	{".svg", "image/svg+xml"},
}

// MimeType guesses an image type from the URL path, defaulting to JPEG.
func MimeType(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	for _, m := range mimeTypes {
		if strings.HasSuffix(path, m.ext) {
			return m.mime
		}
	}
	return "image/jpeg"
}

// AssetFilename names the uploaded asset after the event ID.
func AssetFilename(eventID, mime string) string {
	ext := strings.TrimPrefix(mime, "image/")
	switch ext {
	case "jpeg":
		ext = "jpg"
	case "svg+xml":
		ext = "svg"
	}
	return eventID + "." + ext
}

// UploadImages moves every external image URL into the store: download,
// upload as an asset, then one patch that sets the image reference and
// unsets imageUrl.
func (m *Migrator) UploadImages(ctx context.Context, fetcher Fetcher) (Result, error) {
	var res Result
	m.printf("Henter events med imageUrl...\n")
	recs, err := m.Store.ListImageURLs(ctx)
	if err != nil {
		return res, fmt.Errorf("listing image urls: %w", err)
	}
	m.printf("Fant %d events med bilder\n\n", len(recs))

	var stopped error
	for _, rec := range recs {
		if stopped = ctx.Err(); stopped != nil {
			break
		}
		assetID, size, err := m.uploadOne(ctx, fetcher, rec)
		if err != nil {
			m.printf("  %s\n\n", ui.RenderFailure(ui.MarkFailure+" Feil: "+err.Error()))
			m.logger().Error("image upload failed", "id", rec.ID, "url", rec.ImageURL, "err", err)
			m.Metrics.MigrationRecord(CommandUploadImages, metrics.OutcomeFailed)
			m.publish(ctx, events.TopicEventMigrationFailed, events.EventMigrationFailed{
				EventID: rec.ID, Title: rec.Title, Command: CommandUploadImages, Error: err.Error(),
			})
			res.Failed++
			continue
		}
		m.printf("  %s\n\n", ui.RenderSuccess(ui.MarkSuccess+" Ferdig: "+assetID))
		m.logger().Info("image uploaded", "id", rec.ID, "asset", assetID, "bytes", size, "dry_run", m.DryRun)
		m.Metrics.MigrationRecord(CommandUploadImages, metrics.OutcomeConverted)
		m.publish(ctx, events.TopicImageUploaded, events.ImageUploaded{EventID: rec.ID, AssetID: assetID, Bytes: size})
		res.Converted++
	}

	m.printf("Fullført: %d lastet opp, %d feilet\n", res.Converted, res.Failed)
	return res, stopped
}

func (m *Migrator) uploadOne(ctx context.Context, fetcher Fetcher, rec contentstore.ImageRecord) (string, int, error) {
	m.printf("  %s Laster ned: %s\n", ui.MarkDown, ui.Truncate(rec.Title, 50))
	data, err := fetcher.Fetch(ctx, rec.ImageURL)
	if err != nil {
		return "", 0, err
	}

	mime := MimeType(rec.ImageURL)
	m.printf("  %s Laster opp (%d KB)...\n", ui.MarkUp, len(data)/1024)
	if m.DryRun {
		return "(tørrkjøring)", len(data), nil
	}
	assetID, err := m.Store.UploadImage(ctx, AssetFilename(rec.ID, mime), mime, data)
	if err != nil {
		return "", len(data), err
	}

	alt := rec.ImageAlt
	if alt == "" {
		alt = rec.Title
	}
	err = m.Store.Patch(ctx, contentstore.Patch{
		ID:    rec.ID,
		Set:   map[string]any{"image": contentstore.ImageValue(assetID, alt)},
		Unset: []string{"imageUrl"},
	})
	if err != nil {
		return "", len(data), err
	}
	return assetID, len(data), nil
}
