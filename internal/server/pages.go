package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/alfredjeanlab/kalender/internal/calendar"
	"github.com/alfredjeanlab/kalender/internal/model"
	"github.com/alfredjeanlab/kalender/internal/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

// paramMonth selects the month shown in the date picker.
const paramMonth = "month"

func parsePages(loc *time.Location) (map[string]*template.Template, error) {
	in := func(t time.Time) time.Time { return t.In(loc) }
	funcs := template.FuncMap{
		"day":        func(t time.Time) string { return dayNumber(in(t)) },
		"monthShort": func(t time.Time) string { return monthShort(in(t)) },
		"span":       func(start, end time.Time) string { return formatSpan(inOrZero(start, loc), inOrZero(end, loc)) },
	}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"list", "detail", "message"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

func inOrZero(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(loc)
}

// render executes a page into a buffer first so template errors still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.opts.Logger.Error("render page", "page", page, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type messagePage struct {
	SiteName string
	Heading  string
	Detail   string
}

func (s *Server) renderMessage(w http.ResponseWriter, status int, heading, detail string) {
	s.render(w, status, "message", messagePage{SiteName: s.opts.SiteName, Heading: heading, Detail: detail})
}

// handleNotFound handles every path without a route.
func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.renderMessage(w, http.StatusNotFound, "Siden finnes ikke", "Vi fant ikke siden du lette etter.")
}

// card is one event in the list.
type card struct {
	Slug      string
	Title     string
	Labels    string
	IntroText string
	Location  string
	Start     time.Time
	End       time.Time
	ImageURL  string
	ImageAlt  string
}

func newCard(ev model.Event) card {
	img, alt := ev.DisplayImage()
	if alt == "" {
		alt = ev.Title
	}
	return card{
		Slug:      ev.Slug,
		Title:     ev.Title,
		Labels:    categoryLine(ev),
		IntroText: ev.IntroText,
		Location:  ev.Location,
		Start:     ev.StartDate,
		End:       ev.EndDate,
		ImageURL:  img,
		ImageAlt:  alt,
	}
}

type chip struct {
	Label  string
	Href   string
	Active bool
}

type dayCell struct {
	calendar.Day
	Href string
}

type listPage struct {
	SiteName     string
	Cards        []card
	Total        int
	HasMore      bool
	LoadMoreHref string
	Areas        []chip
	Categories   []chip
	Weekdays     []string
	Weeks        [][7]dayCell
	MonthLabel   string
	PrevHref     string
	NextHref     string
	RangeLabel   string
}

// href turns an encoded query into a link to the list page.
func href(query string) string {
	if query == "" {
		return "/"
	}
	return "/?" + query
}

// withMonth adds the picker month to an encoded query.
func withMonth(query string, month time.Time) string {
	m := paramMonth + "=" + url.QueryEscape(month.Format(calendar.MonthLayout))
	if query == "" {
		return m
	}
	return query + "&" + m
}

// handleList handles GET /.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	evs, err := s.events(r.Context())
	if err != nil {
		s.opts.Logger.Error("list events", "err", err)
		s.renderMessage(w, http.StatusBadGateway, "Kunne ikke hente arrangementer", "Prøv igjen om litt.")
		return
	}

	q := r.URL.Query()
	loc := s.opts.Location
	view := calendar.FromQuery(q, s.opts.PageSize, loc)
	page := view.Page(evs)

	data := listPage{
		SiteName:     s.opts.SiteName,
		Total:        page.Total,
		HasMore:      page.HasMore,
		LoadMoreHref: href(view.LoadMoreQuery()),
		Weekdays:     weekdayAbbrev[:],
	}
	for _, ev := range page.Events {
		data.Cards = append(data.Cards, newCard(ev))
	}

	categories, areas := calendar.Options(evs)
	for _, a := range areas {
		data.Areas = append(data.Areas, chip{Label: a, Href: href(view.AreaQuery(a)), Active: a == view.Area})
	}
	for _, c := range categories {
		data.Categories = append(data.Categories, chip{Label: model.CategoryLabel(c), Href: href(view.CategoryQuery(c)), Active: c == view.Category})
	}

	shown, err := time.ParseInLocation(calendar.MonthLayout, q.Get(paramMonth), loc)
	if err != nil {
		shown = calendar.DefaultMonth(view.Range, evs, s.now())
	}
	month := calendar.NewMonth(shown, loc, calendar.EventDays(evs, loc), view.Range)
	current := view.Query().Encode()
	data.MonthLabel = formatMonth(month.First)
	data.PrevHref = href(withMonth(current, month.Prev()))
	data.NextHref = href(withMonth(current, month.Next()))
	for _, week := range month.Weeks {
		var cells [7]dayCell
		for i, d := range week {
			next := calendar.SelectDay(view.Range, d.Date)
			cells[i] = dayCell{Day: d, Href: href(withMonth(view.RangeQuery(next), month.First))}
		}
		data.Weeks = append(data.Weeks, cells)
	}
	switch {
	case !view.Range.From.IsZero() && !view.Range.To.IsZero():
		data.RangeLabel = formatDate(view.Range.From.In(loc)) + " – " + formatDate(view.Range.To.In(loc))
	case !view.Range.From.IsZero():
		data.RangeLabel = "Fra " + formatDate(view.Range.From.In(loc))
	}

	s.render(w, http.StatusOK, "list", data)
}

type detailPage struct {
	SiteName   string
	Slug       string
	Title      string
	Labels     string
	IntroText  string
	When       string
	Location   string
	Organizer  string
	TicketLink string
	TicketText string
	ImageURL   string
	ImageAlt   string
	Body       template.HTML
}

// handleDetail handles GET /events/{slug}.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	ev, err := s.eventBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.opts.Logger.Error("get event", "slug", r.PathValue("slug"), "err", err)
		s.renderMessage(w, http.StatusBadGateway, "Kunne ikke hente arrangementet", "Prøv igjen om litt.")
		return
	}
	if ev == nil {
		s.renderMessage(w, http.StatusNotFound, "Fant ikke arrangementet", "Arrangementet finnes ikke eller er fjernet.")
		return
	}

	loc := s.opts.Location
	img, alt := ev.DisplayImage()
	if alt == "" {
		alt = ev.Title
	}
	data := detailPage{
		SiteName:   s.opts.SiteName,
		Slug:       ev.Slug,
		Title:      ev.Title,
		Labels:     categoryLine(*ev),
		IntroText:  ev.IntroText,
		When:       formatSpan(inOrZero(ev.StartDate, loc), inOrZero(ev.EndDate, loc)),
		Location:   ev.Location,
		Organizer:  ev.Organizer,
		TicketLink: ev.TicketLink,
		TicketText: ev.TicketText(),
		ImageURL:   img,
		ImageAlt:   alt,
	}
	// Legacy HTML goes through the converter so only the block subset is
	// ever rendered.
	blocks, err := richtext.ContentBlocks(ev.Content)
	if err != nil {
		s.opts.Logger.Warn("convert event body", "slug", ev.Slug, "err", err)
	} else if len(blocks) > 0 {
		data.Body = richtext.RenderHTML(blocks)
	}

	s.render(w, http.StatusOK, "detail", data)
}
