// Package calendar holds the list page's filter and pagination state. The
// state travels in URL query parameters so every view is a plain link.
package calendar

import (
	"net/url"
	"strconv"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// DefaultPageSize is how many events the list shows before "load more".
const DefaultPageSize = 6

// DayLayout formats range endpoints in query parameters.
const DayLayout = "2006-01-02"

// Query parameter names.
const (
	ParamFrom     = "from"
	ParamTo       = "to"
	ParamArea     = "area"
	ParamCategory = "category"
	ParamShow     = "show"
)

// Range is a day-aligned date filter. A zero From means no date filter; a
// zero To with a set From means "from this day onward".
type Range struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether no date filter is set.
func (r Range) IsZero() bool { return r.From.IsZero() }

// View is the filter and pagination state of the list page.
type View struct {
	Range    Range
	Area     string
	Category string
	// Visible is how many matching events are revealed.
	Visible  int
	PageSize int

	loc *time.Location
}

// NewView returns an unfiltered view showing one page. Day boundaries are
// computed in loc.
func NewView(pageSize int, loc *time.Location) *View {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if loc == nil {
		loc = time.UTC
	}
	return &View{
		Area:     model.AllOption,
		Category: model.AllOption,
		Visible:  pageSize,
		PageSize: pageSize,
		loc:      loc,
	}
}

// Location returns the zone day boundaries are computed in.
func (v *View) Location() *time.Location { return v.loc }

// SetRange changes the date filter. Endpoints are swapped when To is before
// From.
func (v *View) SetRange(r Range) {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		r.From, r.To = r.To, r.From
	}
	v.Range = r
	v.Visible = v.PageSize
}

// SetArea changes the area filter; "" or "All" clears it.
func (v *View) SetArea(area string) {
	if area == "" {
		area = model.AllOption
	}
	v.Area = area
	v.Visible = v.PageSize
}

// SetCategory changes the category filter; "" or "All" clears it.
func (v *View) SetCategory(category string) {
	if category == "" {
		category = model.AllOption
	}
	v.Category = category
	v.Visible = v.PageSize
}

// Reset clears every filter.
func (v *View) Reset() {
	v.Range = Range{}
	v.Area = model.AllOption
	v.Category = model.AllOption
	v.Visible = v.PageSize
}

// LoadMore reveals one more page.
func (v *View) LoadMore() {
	v.Visible += v.PageSize
}

// Filtered reports whether any filter is active.
func (v *View) Filtered() bool {
	return !v.Range.IsZero() || v.Area != model.AllOption || v.Category != model.AllOption
}

func (v *View) startOfDay(t time.Time) time.Time {
	t = t.In(v.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, v.loc)
}

func (v *View) endOfDay(t time.Time) time.Time {
	return v.startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func within(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// Matches reports whether ev passes all three filters.
//
// With both range endpoints set, the start or the end must fall inside
// [startOfDay(From), endOfDay(To)]. With only From set, the event fails only
// when both its start and end are before startOfDay(From).
func (v *View) Matches(ev *model.Event) bool {
	switch {
	case !v.Range.From.IsZero() && !v.Range.To.IsZero():
		lo, hi := v.startOfDay(v.Range.From), v.endOfDay(v.Range.To)
		if !within(ev.StartDate, lo, hi) && !within(ev.EndDate, lo, hi) {
			return false
		}
	case !v.Range.From.IsZero():
		lo := v.startOfDay(v.Range.From)
		if ev.StartDate.Before(lo) && ev.EndDate.Before(lo) {
			return false
		}
	}
	if v.Area != model.AllOption && !ev.HasArea(v.Area) {
		return false
	}
	if v.Category != model.AllOption && ev.Category != v.Category {
		return false
	}
	return true
}

// Filter returns the matching events in input order.
func (v *View) Filter(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for i := range events {
		if v.Matches(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

// Page is the revealed slice of a filtered list.
type Page struct {
	Events []model.Event
	// Total is the number of matching events.
	Total   int
	HasMore bool
}

// Page filters events and returns the first Visible matches.
func (v *View) Page(events []model.Event) Page {
	filtered := v.Filter(events)
	n := min(v.Visible, len(filtered))
	return Page{
		Events:  filtered[:n],
		Total:   len(filtered),
		HasMore: v.Visible < len(filtered),
	}
}

// Options returns "All" followed by the distinct non-empty categories and
// areas of events, in first-seen order.
func Options(events []model.Event) (categories, areas []string) {
	categories = []string{model.AllOption}
	areas = []string{model.AllOption}
	seenCat := make(map[string]bool)
	seenArea := make(map[string]bool)
	for _, ev := range events {
		if ev.Category != "" && !seenCat[ev.Category] {
			seenCat[ev.Category] = true
			categories = append(categories, ev.Category)
		}
		for _, a := range ev.Areas {
			if a != "" && !seenArea[a] {
				seenArea[a] = true
				areas = append(areas, a)
			}
		}
	}
	return categories, areas
}

// FromQuery restores a view from query parameters. Unparseable values are
// ignored.
func FromQuery(q url.Values, pageSize int, loc *time.Location) *View {
	v := NewView(pageSize, loc)
	var r Range
	if t, err := time.ParseInLocation(DayLayout, q.Get(ParamFrom), v.loc); err == nil {
		r.From = t
		if t, err := time.ParseInLocation(DayLayout, q.Get(ParamTo), v.loc); err == nil {
			r.To = t
		}
	}
	v.SetRange(r)
	v.SetArea(q.Get(ParamArea))
	v.SetCategory(q.Get(ParamCategory))
	if n, err := strconv.Atoi(q.Get(ParamShow)); err == nil && n > v.PageSize {
		v.Visible = n
	}
	return v
}

// Query encodes the view; default values are omitted.
func (v *View) Query() url.Values {
	q := url.Values{}
	if !v.Range.From.IsZero() {
		q.Set(ParamFrom, v.Range.From.In(v.loc).Format(DayLayout))
		if !v.Range.To.IsZero() {
			q.Set(ParamTo, v.Range.To.In(v.loc).Format(DayLayout))
		}
	}
	if v.Area != model.AllOption {
		q.Set(ParamArea, v.Area)
	}
	if v.Category != model.AllOption {
		q.Set(ParamCategory, v.Category)
	}
	if v.Visible != v.PageSize {
		q.Set(ParamShow, strconv.Itoa(v.Visible))
	}
	return q
}

// clone copies v so link builders can mutate freely.
func (v *View) clone() *View {
	c := *v
	return &c
}

// LoadMoreQuery is the query for the same view with one more page revealed.
func (v *View) LoadMoreQuery() string {
	c := v.clone()
	c.LoadMore()
	return c.Query().Encode()
}

// AreaQuery is the query for the view with the area filter changed.
func (v *View) AreaQuery(area string) string {
	c := v.clone()
	c.SetArea(area)
	return c.Query().Encode()
}

// CategoryQuery is the query for the view with the category filter changed.
func (v *View) CategoryQuery(category string) string {
	c := v.clone()
	c.SetCategory(category)
	return c.Query().Encode()
}

// RangeQuery is the query for the view with the date filter changed.
func (v *View) RangeQuery(r Range) string {
	c := v.clone()
	c.SetRange(r)
	return c.Query().Encode()
}

// EventDays returns the set of days (formatted with DayLayout in loc) on
// which some event starts.
func EventDays(events []model.Event, loc *time.Location) map[string]bool {
	days := make(map[string]bool, len(events))
	for _, ev := range events {
		if !ev.StartDate.IsZero() {
			days[ev.StartDate.In(loc).Format(DayLayout)] = true
		}
	}
	return days
}
