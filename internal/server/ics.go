package server

import (
	"net/http"
	"strings"

	ics "github.com/arran4/golang-ical"

	"github.com/alfredjeanlab/kalender/internal/calendar"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/richtext"
)

const icsProductID = "-//kalender//kalender//NB"

// newCalendar returns an empty published calendar.
func (s *Server) newCalendar() *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(s.opts.SiteName)
	cal.SetXWRTimezone(s.opts.Location.String())
	return cal
}

// addEvent appends ev as a VEVENT. Events without a start are skipped.
func (s *Server) addEvent(cal *ics.Calendar, ev *model.Event, baseURL string) {
	if ev.StartDate.IsZero() {
		return
	}
	vev := cal.AddEvent(ev.ID + "@kalender")
	stamp := ev.UpdatedAt
	if stamp.IsZero() {
		stamp = s.now()
	}
	vev.SetDtStampTime(stamp.UTC())
	if !ev.UpdatedAt.IsZero() {
		vev.SetModifiedAt(ev.UpdatedAt.UTC())
	}
	vev.SetStartAt(ev.StartDate.UTC())
	end := ev.EndDate
	if end.IsZero() || end.Before(ev.StartDate) {
		end = ev.StartDate
	}
	vev.SetEndAt(end.UTC())
	vev.SetSummary(ev.Title)
	if ev.Location != "" {
		vev.SetLocation(ev.Location)
	}
	if desc := eventDescription(ev); desc != "" {
		vev.SetDescription(desc)
	}
	if ev.Slug != "" {
		vev.SetURL(baseURL + "/events/" + ev.Slug)
	}
	if ev.Category != "" {
		vev.AddProperty(ics.ComponentPropertyCategories, model.CategoryLabel(ev.Category))
	}
}

// eventDescription is the intro text, organizer and plain-text body.
func eventDescription(ev *model.Event) string {
	var parts []string
	if ev.IntroText != "" {
		parts = append(parts, ev.IntroText)
	}
	if ev.Organizer != "" {
		parts = append(parts, "Arrangør: "+ev.Organizer)
	}
	if blocks, err := richtext.ContentBlocks(ev.Content); err == nil {
		if body := richtext.PlainText(blocks); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n")
}

// baseURL derives the site's absolute URL from the request.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeCalendar(w http.ResponseWriter, cal *ics.Calendar, filename string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write([]byte(cal.Serialize()))
}

// handleFeedICS handles GET /events.ics. It honors the list page's filter
// parameters but ignores pagination.
func (s *Server) handleFeedICS(w http.ResponseWriter, r *http.Request) {
	evs, err := s.events(r.Context())
	if err != nil {
		s.opts.Logger.Error("list events", "err", err)
		http.Error(w, "failed to fetch events", http.StatusBadGateway)
		return
	}
	view := calendar.FromQuery(r.URL.Query(), s.opts.PageSize, s.opts.Location)
	cal := s.newCalendar()
	base := baseURL(r)
	for _, ev := range view.Filter(evs) {
		s.addEvent(cal, &ev, base)
	}
	writeCalendar(w, cal, "kalender.ics")
}

// handleEventICS handles GET /events/{slug}/ics.
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	ev, err := s.eventBySlug(r.Context(), slug)
	if err != nil {
		s.opts.Logger.Error("get event", "slug", slug, "err", err)
		http.Error(w, "failed to fetch event", http.StatusBadGateway)
		return
	}
	if ev == nil {
		s.handleNotFound(w, r)
		return
	}
	cal := s.newCalendar()
	s.addEvent(cal, ev, baseURL(r))
	writeCalendar(w, cal, slug+".ics")
}
