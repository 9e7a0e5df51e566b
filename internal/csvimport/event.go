package csvimport

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// ImportedIDPrefix prefixes the document ID of every imported event, so a
// re-import replaces the same documents.
const ImportedIDPrefix = "imported-"

// Export column names.
const (
	ColTitle          = "Title"
	ColSlug           = "Slug"
	ColStartDate      = "Start date"
	ColEndDate        = "End date"
	ColImage          = "Image"
	ColImageAlt       = "Image:alt"
	ColCategory       = "Theme Filter"
	ColAreas          = "Area Filter"
	ColPlace          = "Place"
	ColOrganizer      = "Organizer"
	ColIntroText      = "Intro text"
	ColTicketLink     = "Ticket link"
	ColTicketLinkText = "Ticket link button text"
	ColContent        = "Content"
)

// BuildEvent maps an export row onto an event document. Dates without a zone
// are read in loc. The content cell becomes the legacy HTML body.
func BuildEvent(row Row, loc *time.Location) (model.Event, error) {
	get := func(col string) string { return strings.TrimSpace(row[col]) }

	slug := get(ColSlug)
	if slug == "" {
		slug = Slugify(get(ColTitle))
	}
	slug = strings.TrimSpace(strings.Trim(slug, `"`))

	ev := model.Event{
		ID:             ImportedIDPrefix + Slugify(slug),
		Title:          get(ColTitle),
		Slug:           slug,
		ImageURL:       get(ColImage),
		ImageAlt:       get(ColImageAlt),
		Category:       get(ColCategory),
		Areas:          ParseAreas(row[ColAreas]),
		Location:       get(ColPlace),
		Organizer:      get(ColOrganizer),
		IntroText:      get(ColIntroText),
		TicketLink:     get(ColTicketLink),
		TicketLinkText: get(ColTicketLinkText),
	}
	if html := get(ColContent); html != "" {
		ev.Content = model.RawHTML(html)
	}

	var err error
	if ev.StartDate, err = model.ParseTime(row[ColStartDate], loc); err != nil {
		return ev, fmt.Errorf("%s: %w", ColStartDate, err)
	}
	if ev.EndDate, err = model.ParseTime(row[ColEndDate], loc); err != nil {
		return ev, fmt.Errorf("%s: %w", ColEndDate, err)
	}
	return ev, nil
}

// ParseAreas splits a comma-separated area cell, dropping blanks.
func ParseAreas(value string) []string {
	var areas []string
	for _, a := range strings.Split(value, ",") {
		if a = strings.TrimSpace(a); a != "" {
			areas = append(areas, a)
		}
	}
	return areas
}

var transliterations = strings.NewReplacer(
	"æ", "ae", "ø", "o", "å", "a",
	"é", "e", "è", "e",
	"ü", "u", "ö", "o", "ä", "a",
)

// slugMaxLen is the longest slug the store accepts.
const slugMaxLen = 96

// Slugify turns a title into a URL slug: lowercase, Norwegian letters
// transliterated, punctuation dropped and runs of spaces, underscores and
// hyphens collapsed to a single hyphen.
func Slugify(text string) string {
	text = transliterations.Replace(strings.TrimSpace(strings.ToLower(text)))

	var b strings.Builder
	pendingSep := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r) || r == '_' || r == '-':
			pendingSep = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}

	// Edges carry no hyphen here; a cut ending on one keeps it.
	out := []rune(b.String())
	if len(out) > slugMaxLen {
		out = out[:slugMaxLen]
	}
	return string(out)
}
