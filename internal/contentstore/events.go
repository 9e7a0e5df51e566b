package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// LegacyRecord is an event that still carries the HTML body field.
type LegacyRecord struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	HTML  string `json:"htmlContent"`
}

// ContentState reports whether an event has a block body.
type ContentState struct {
	ID         string `json:"_id"`
	Title      string `json:"title"`
	HasContent bool   `json:"hasContent"`
}

// ImageRecord is an event whose image is still an external URL.
type ImageRecord struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	ImageAlt string `json:"imageAlt"`
}

// Patch sets and unsets fields on one document.
type Patch struct {
	ID    string
	Set   map[string]any
	Unset []string
}

// ListEvents returns all events ordered by start date.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.Query(ctx, eventsQuery, nil, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEventBySlug returns the event with the given slug, or nil when none
// matches.
func (c *Client) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var ev *model.Event
	if err := c.Query(ctx, eventBySlugQuery, map[string]any{"slug": slug}, &ev); err != nil {
		return nil, fmt.Errorf("get event %q: %w", slug, err)
	}
	return ev, nil
}

// ListLegacyHTML returns events that still have the HTML body field.
func (c *Client) ListLegacyHTML(ctx context.Context) ([]LegacyRecord, error) {
	var recs []LegacyRecord
	if err := c.Query(ctx, legacyHTMLQuery, nil, &recs); err != nil {
		return nil, fmt.Errorf("list legacy html: %w", err)
	}
	return recs, nil
}

// ListContentState returns every event with a flag telling whether it has a
// block body.
func (c *Client) ListContentState(ctx context.Context) ([]ContentState, error) {
	var recs []ContentState
	if err := c.Query(ctx, contentStateQuery, nil, &recs); err != nil {
		return nil, fmt.Errorf("list content state: %w", err)
	}
	return recs, nil
}

// ListImageURLs returns events whose image is an external URL.
func (c *Client) ListImageURLs(ctx context.Context) ([]ImageRecord, error) {
	var recs []ImageRecord
	if err := c.Query(ctx, imageURLQuery, nil, &recs); err != nil {
		return nil, fmt.Errorf("list image urls: %w", err)
	}
	return recs, nil
}

// Patch commits p as its own transaction.
func (c *Client) Patch(ctx context.Context, p Patch) error {
	body := map[string]any{"id": p.ID}
	if len(p.Set) > 0 {
		body["set"] = p.Set
	}
	if len(p.Unset) > 0 {
		body["unset"] = p.Unset
	}
	if _, err := c.Mutate(ctx, []map[string]any{{"patch": body}}); err != nil {
		return fmt.Errorf("patch %s: %w", p.ID, err)
	}
	return nil
}

// CreateOrReplace writes events as whole documents in one transaction.
func (c *Client) CreateOrReplace(ctx context.Context, events []model.Event) (*MutationResult, error) {
	mutations := make([]map[string]any, len(events))
	for i, ev := range events {
		mutations[i] = map[string]any{"createOrReplace": Document(ev)}
	}
	res, err := c.Mutate(ctx, mutations)
	if err != nil {
		return nil, fmt.Errorf("create or replace: %w", err)
	}
	return res, nil
}

// UploadImage stores data as an image asset and returns the asset document ID.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	u := c.writeBase + "/assets/images/" + url.PathEscape(c.dataset) + "?filename=" + url.QueryEscape(filename)
	var resp struct {
		Document struct {
			ID string `json:"_id"`
		} `json:"document"`
	}
	if err := c.do(ctx, http.MethodPost, u, contentType, bytes.NewReader(data), &resp); err != nil {
		return "", fmt.Errorf("upload image %s: %w", filename, err)
	}
	if resp.Document.ID == "" {
		return "", fmt.Errorf("upload image %s: response has no asset id", filename)
	}
	return resp.Document.ID, nil
}

// ImageValue is the stored shape of an image field referencing assetID.
func ImageValue(assetID, alt string) map[string]any {
	v := map[string]any{
		"_type": "image",
		"asset": map[string]any{"_type": "reference", "_ref": assetID},
	}
	if alt != "" {
		v["alt"] = alt
	}
	return v
}

// Document converts ev to the stored document shape.
func Document(ev model.Event) map[string]any {
	doc := map[string]any{
		"_type": "event",
		"_id":   ev.ID,
		"title": ev.Title,
		"slug":  map[string]any{"_type": "slug", "current": ev.Slug},
	}
	if !ev.StartDate.IsZero() {
		doc["startDate"] = ev.StartDate.UTC().Format(time.RFC3339)
	}
	if !ev.EndDate.IsZero() {
		doc["endDate"] = ev.EndDate.UTC().Format(time.RFC3339)
	}
	for field, v := range map[string]string{
		"category":       ev.Category,
		"location":       ev.Location,
		"organizer":      ev.Organizer,
		"introText":      ev.IntroText,
		"ticketLink":     ev.TicketLink,
		"ticketLinkText": ev.TicketLinkText,
		"imageUrl":       ev.ImageURL,
		"imageAlt":       ev.ImageAlt,
	} {
		if v != "" {
			doc[field] = v
		}
	}
	if len(ev.Areas) > 0 {
		doc["areas"] = ev.Areas
	}
	if ev.Image != nil && ev.Image.AssetRef != "" {
		doc["image"] = ImageValue(ev.Image.AssetRef, ev.Image.Alt)
	}
	switch c := ev.Content.(type) {
	case model.RawHTML:
		doc["htmlContent"] = string(c)
	case model.Blocks:
		doc["content"] = c
	}
	return doc
}
