package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultTicketLinkText is shown on the ticket button when the record has no
// explicit label.
const DefaultTicketLinkText = "Meld deg på"

// Event is a single event record as stored in the content store.
type Event struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Category       string    `json:"category,omitempty"`
	Areas          []string  `json:"areas,omitempty"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Location       string    `json:"location,omitempty"`
	Organizer      string    `json:"organizer,omitempty"`
	IntroText      string    `json:"introText,omitempty"`
	TicketLink     string    `json:"ticketLink,omitempty"`
	TicketLinkText string    `json:"ticketLinkText,omitempty"`
	Image          *Image    `json:"image,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	ImageAlt       string    `json:"imageAlt,omitempty"`
	UpdatedAt      time.Time `json:"_updatedAt,omitzero"`

	// Content is nil when the record has no body.
	Content Content `json:"-"`
}

// Image is an uploaded asset reference.
type Image struct {
	AssetRef string `json:"assetRef"`
	URL      string `json:"url,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// DisplayImage returns the URL and alt text to render, preferring an
// uploaded asset over an external URL.
func (e *Event) DisplayImage() (url, alt string) {
	if e.Image != nil && e.Image.URL != "" {
		alt = e.Image.Alt
		if alt == "" {
			alt = e.ImageAlt
		}
		return e.Image.URL, alt
	}
	return e.ImageURL, e.ImageAlt
}

// TicketText returns the ticket button label.
func (e *Event) TicketText() string {
	if t := strings.TrimSpace(e.TicketLinkText); t != "" {
		return t
	}
	return DefaultTicketLinkText
}

// HasArea reports whether the event is tagged with area.
func (e *Event) HasArea(area string) bool {
	for _, a := range e.Areas {
		if a == area {
			return true
		}
	}
	return false
}

// MarshalJSON writes the content variant into its wire field.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	w := struct {
		alias
		HTMLContent string `json:"htmlContent,omitempty"`
		Content     Blocks `json:"content,omitempty"`
	}{alias: alias(e)}
	switch c := e.Content.(type) {
	case RawHTML:
		w.HTMLContent = string(c)
	case Blocks:
		w.Content = c
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both the projected and the raw document shapes: slug
// as a string or {"current": ...}, areas as "areas" or the older single "area",
// and content from either "htmlContent" or "content" (HTML wins).
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var w struct {
		alias
		Slug        json.RawMessage `json:"slug"`
		Area        json.RawMessage `json:"area"`
		StartDate   string          `json:"startDate"`
		EndDate     string          `json:"endDate"`
		HTMLContent string          `json:"htmlContent"`
		Content     Blocks          `json:"content"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event(w.alias)

	slug, err := decodeSlug(w.Slug)
	if err != nil {
		return fmt.Errorf("slug: %w", err)
	}
	e.Slug = slug

	if len(e.Areas) == 0 {
		areas, err := decodeStringList(w.Area)
		if err != nil {
			return fmt.Errorf("area: %w", err)
		}
		e.Areas = areas
	}

	if e.StartDate, err = ParseTime(w.StartDate, time.UTC); err != nil {
		return fmt.Errorf("startDate: %w", err)
	}
	if e.EndDate, err = ParseTime(w.EndDate, time.UTC); err != nil {
		return fmt.Errorf("endDate: %w", err)
	}

	switch {
	case strings.TrimSpace(w.HTMLContent) != "":
		e.Content = RawHTML(w.HTMLContent)
	case len(w.Content) > 0:
		e.Content = w.Content
	}
	return nil
}

func decodeSlug(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Current string `json:"current"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.Current, nil
}

func decodeStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseTime parses the timestamp formats seen in store documents and CSV
// exports. Layouts without a zone are read in loc. An empty string yields the
// zero time.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
