package calendar

import (
	"fmt"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func span(start, end time.Time) *model.Event {
	return &model.Event{StartDate: start, EndDate: end}
}

func TestMatches_BothEndpoints(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetRange(Range{From: day(2025, 3, 10, 15), To: day(2025, 3, 12, 9)})

	for _, tc := range []struct {
		name string
		ev   *model.Event
		want bool
	}{
		{"StartInside", span(day(2025, 3, 11, 10), day(2025, 3, 20, 10)), true},
		{"EndInside", span(day(2025, 3, 1, 10), day(2025, 3, 10, 0)), true},
		{"StartAtFirstMidnight", span(day(2025, 3, 10, 0), day(2025, 3, 10, 0)), true},
		{"LastSecondOfToDay", span(time.Date(2025, 3, 12, 23, 59, 59, 0, time.UTC), day(2025, 3, 14, 0)), true},
		{"NextDay", span(day(2025, 3, 13, 0), day(2025, 3, 13, 1)), false},
		{"EntirelyBefore", span(day(2025, 3, 1, 0), day(2025, 3, 9, 23)), false},
		// Neither endpoint inside the range.
		{"SpansWholeRange", span(day(2025, 3, 1, 0), day(2025, 3, 30, 0)), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Matches(tc.ev); got != tc.want {
				t.Errorf("Matches(%v..%v) = %v, want %v", tc.ev.StartDate, tc.ev.EndDate, got, tc.want)
			}
		})
	}
}

// Both-endpoint predicate: passes iff start or end is within the day-aligned range.
func TestMatches_BothEndpointsProperty(t *testing.T) {
	v := NewView(6, time.UTC)
	from, to := day(2025, 1, 5, 13), day(2025, 1, 8, 7)
	v.SetRange(Range{From: from, To: to})
	lo := day(2025, 1, 5, 0)
	hi := day(2025, 1, 9, 0).Add(-time.Nanosecond)

	base := day(2025, 1, 1, 0)
	for s := 0; s < 12*24; s += 7 {
		for e := s; e < 12*24; e += 11 {
			ev := span(base.Add(time.Duration(s)*time.Hour), base.Add(time.Duration(e)*time.Hour))
			want := within(ev.StartDate, lo, hi) || within(ev.EndDate, lo, hi)
			if got := v.Matches(ev); got != want {
				t.Fatalf("Matches(%v..%v) = %v, want %v", ev.StartDate, ev.EndDate, got, want)
			}
		}
	}
}

func TestMatches_FromOnly(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetRange(Range{From: day(2025, 3, 10, 18)})

	for _, tc := range []struct {
		name string
		ev   *model.Event
		want bool
	}{
		{"Later", span(day(2025, 4, 1, 0), day(2025, 4, 1, 2)), true},
		{"SameDayEarlier", span(day(2025, 3, 10, 8), day(2025, 3, 10, 9)), true},
		{"EndsOnFromDay", span(day(2025, 3, 1, 0), day(2025, 3, 10, 0)), true},
		{"Ongoing", span(day(2025, 3, 1, 0), day(2025, 3, 30, 0)), true},
		{"BothBefore", span(day(2025, 3, 1, 0), day(2025, 3, 9, 23)), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Matches(tc.ev); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatches_DayBoundariesUseLocation(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	v := NewView(6, oslo)
	v.SetRange(Range{From: time.Date(2025, 6, 2, 0, 0, 0, 0, oslo)})

	// 23:30 UTC on June 1 is 01:30 in Oslo on June 2.
	ev := span(time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC), time.Date(2025, 6, 1, 23, 45, 0, 0, time.UTC))
	if !v.Matches(ev) {
		t.Error("event on June 2 local time should match")
	}
}

func TestMatches_UnsetRangeAndToOnly(t *testing.T) {
	v := NewView(6, time.UTC)
	ev := span(day(2000, 1, 1, 0), day(2000, 1, 1, 1))
	if !v.Matches(ev) {
		t.Error("unset range should pass everything")
	}
	v.Range = Range{To: day(1990, 1, 1, 0)}
	if !v.Matches(ev) {
		t.Error("range without From should pass everything")
	}
}

func TestMatches_AreaAndCategory(t *testing.T) {
	ev := &model.Event{Category: "Seminar", Areas: []string{"ÅKP", "Mafoss"}}
	for _, tc := range []struct {
		area, category string
		want           bool
	}{
		{model.AllOption, model.AllOption, true},
		{"Mafoss", model.AllOption, true},
		{"Blue Legasea", model.AllOption, false},
		{model.AllOption, "Seminar", true},
		{model.AllOption, "Webinar", false},
		{"ÅKP", "Seminar", true},
		{"ÅKP", "Forum", false},
	} {
		v := NewView(6, time.UTC)
		v.SetArea(tc.area)
		v.SetCategory(tc.category)
		if got := v.Matches(ev); got != tc.want {
			t.Errorf("area=%q category=%q: Matches = %v, want %v", tc.area, tc.category, got, tc.want)
		}
	}
}

// tenEvents returns events in start-date order; indexes 2, 5 and 9 are Seminars.
func tenEvents() []model.Event {
	var evs []model.Event
	for i := range 10 {
		cat := "Webinar"
		if i == 2 || i == 5 || i == 9 {
			cat = "Seminar"
		}
		start := day(2025, 1, 1+i*3, 9)
		evs = append(evs, model.Event{
			ID: fmt.Sprintf("ev-%d", i), Title: fmt.Sprintf("Event %d", i), Category: cat,
			Areas: []string{"ÅKP"}, StartDate: start, EndDate: start.Add(2 * time.Hour),
		})
	}
	return evs
}

func TestScenario_SeminarFilter(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetCategory("Seminar")

	page := v.Page(tenEvents())
	var ids []string
	for _, ev := range page.Events {
		ids = append(ids, ev.ID)
	}
	if want := []string{"ev-2", "ev-5", "ev-9"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if page.Total != 3 || page.HasMore {
		t.Errorf("page = total %d hasMore %v", page.Total, page.HasMore)
	}
}

func TestPagination(t *testing.T) {
	evs := tenEvents()
	v := NewView(4, time.UTC)

	page := v.Page(evs)
	if len(page.Events) != 4 || !page.HasMore {
		t.Fatalf("first page = %d events, hasMore %v", len(page.Events), page.HasMore)
	}

	v.LoadMore()
	if v.Visible != 8 {
		t.Errorf("Visible = %d after one load more, want 8", v.Visible)
	}
	page = v.Page(evs)
	if len(page.Events) != 8 || !page.HasMore {
		t.Errorf("second page = %d, hasMore %v", len(page.Events), page.HasMore)
	}

	v.LoadMore()
	page = v.Page(evs)
	if len(page.Events) != 10 || page.HasMore {
		t.Errorf("third page = %d (capped at total), hasMore %v", len(page.Events), page.HasMore)
	}
	if page.Events[0].ID != "ev-0" || page.Events[9].ID != "ev-9" {
		t.Error("page order changed")
	}

	for name, change := range map[string]func(){
		"Range":    func() { v.SetRange(Range{From: day(2025, 1, 1, 0)}) },
		"Area":     func() { v.SetArea("ÅKP") },
		"Category": func() { v.SetCategory("Webinar") },
		"Reset":    v.Reset,
	} {
		v.LoadMore()
		v.LoadMore()
		change()
		if v.Visible != v.PageSize {
			t.Errorf("%s: Visible = %d after filter change, want %d", name, v.Visible, v.PageSize)
		}
	}
}

func TestSetRange_SwapsReversed(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetRange(Range{From: day(2025, 5, 10, 0), To: day(2025, 5, 1, 0)})
	if !v.Range.From.Equal(day(2025, 5, 1, 0)) || !v.Range.To.Equal(day(2025, 5, 10, 0)) {
		t.Errorf("range = %+v", v.Range)
	}
}

func TestOptions(t *testing.T) {
	evs := []model.Event{
		{Category: "Seminar", Areas: []string{"Mafoss"}},
		{Category: "Conference", Areas: []string{"ÅKP", "Mafoss"}},
		{Category: "Seminar"},
		{Category: "", Areas: []string{"Collaborators"}},
	}
	cats, areas := Options(evs)
	if want := []string{"All", "Seminar", "Conference"}; !reflect.DeepEqual(cats, want) {
		t.Errorf("categories = %v, want %v", cats, want)
	}
	if want := []string{"All", "Mafoss", "ÅKP", "Collaborators"}; !reflect.DeepEqual(areas, want) {
		t.Errorf("areas = %v, want %v", areas, want)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetRange(Range{From: day(2025, 2, 1, 0), To: day(2025, 2, 28, 0)})
	v.SetArea("Blue Maritime Cluster")
	v.SetCategory("Seminar")
	v.LoadMore()

	q := v.Query()
	want := url.Values{
		"from": {"2025-02-01"}, "to": {"2025-02-28"},
		"area": {"Blue Maritime Cluster"}, "category": {"Seminar"}, "show": {"12"},
	}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("Query() = %v, want %v", q, want)
	}

	back := FromQuery(q, 6, time.UTC)
	if !reflect.DeepEqual(back.Query(), q) {
		t.Errorf("round trip = %v, want %v", back.Query(), q)
	}
	if len(NewView(6, time.UTC).Query()) != 0 {
		t.Error("default view should encode to an empty query")
	}
}

func TestFromQuery_Invalid(t *testing.T) {
	q := url.Values{"from": {"neste uke"}, "to": {"2025-01-01"}, "show": {"-4"}, "area": {""}}
	v := FromQuery(q, 6, time.UTC)
	if !v.Range.IsZero() || v.Visible != 6 || v.Area != model.AllOption || v.Filtered() {
		t.Errorf("view = %+v", v)
	}
}

func TestLinkQueries(t *testing.T) {
	v := NewView(6, time.UTC)
	v.SetCategory("Seminar")
	v.LoadMore()

	if got := v.LoadMoreQuery(); got != "category=Seminar&show=18" {
		t.Errorf("LoadMoreQuery = %q", got)
	}
	if got := v.AreaQuery("ÅKP"); got != "area=%C3%85KP&category=Seminar" {
		t.Errorf("AreaQuery = %q", got)
	}
	if got := v.CategoryQuery(model.AllOption); got != "" {
		t.Errorf("CategoryQuery(All) = %q", got)
	}
	if got := v.RangeQuery(Range{From: day(2025, 1, 2, 0)}); got != "category=Seminar&from=2025-01-02" {
		t.Errorf("RangeQuery = %q", got)
	}
	if v.Visible != 12 || v.Category != "Seminar" {
		t.Error("link builders mutated the view")
	}
}

func TestEventDays(t *testing.T) {
	days := EventDays(tenEvents(), time.UTC)
	if len(days) != 10 || !days["2025-01-04"] || days["2025-01-02"] {
		t.Errorf("days = %v", days)
	}
}

func TestNewMonth(t *testing.T) {
	// March 2025 starts on a Saturday and ends on a Monday.
	r := Range{From: day(2025, 3, 3, 0), To: day(2025, 3, 5, 0)}
	m := NewMonth(day(2025, 3, 15, 12), time.UTC, map[string]bool{"2025-03-04": true}, r)

	if len(m.Weeks) != 6 {
		t.Fatalf("weeks = %d, want 6", len(m.Weeks))
	}
	first := m.Weeks[0]
	if first[0].Key() != "2025-02-24" || first[0].InMonth || !first[5].InMonth {
		t.Errorf("first week = %s..%s", first[0].Key(), first[6].Key())
	}
	if m.Weeks[5][0].Key() != "2025-03-31" {
		t.Errorf("last week starts %s", m.Weeks[5][0].Key())
	}
	tue := m.Weeks[1][1]
	if tue.Key() != "2025-03-04" || !tue.HasEvent || !tue.InRange {
		t.Errorf("March 4 = %+v", tue)
	}
	if m.Weeks[1][3].InRange {
		t.Error("March 6 should be outside the range")
	}
	if m.Prev().Month() != time.February || m.Next().Month() != time.April {
		t.Errorf("prev/next = %v/%v", m.Prev(), m.Next())
	}
}

func TestDefaultMonth(t *testing.T) {
	now := day(2026, 1, 1, 0)
	evs := tenEvents()
	if got := DefaultMonth(Range{}, evs, now); !got.Equal(evs[0].StartDate) {
		t.Errorf("with events = %v", got)
	}
	if got := DefaultMonth(Range{From: day(2024, 5, 5, 0)}, evs, now); got.Month() != time.May {
		t.Errorf("with range = %v", got)
	}
	if got := DefaultMonth(Range{}, nil, now); !got.Equal(now) {
		t.Errorf("empty = %v", got)
	}
}

func TestSelectDay(t *testing.T) {
	d1, d2, d3 := day(2025, 4, 3, 0), day(2025, 4, 9, 0), day(2025, 4, 1, 0)
	for _, tc := range []struct {
		name string
		in   Range
		d    time.Time
		want Range
	}{
		{"FirstClick", Range{}, d1, Range{From: d1}},
		{"SecondClick", Range{From: d1}, d2, Range{From: d1, To: d2}},
		{"SecondClickEarlier", Range{From: d1}, d3, Range{From: d3, To: d1}},
		{"SameDay", Range{From: d1}, d1, Range{From: d1, To: d1}},
		{"Restart", Range{From: d1, To: d2}, d3, Range{From: d3}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectDay(tc.in, tc.d); !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) {
				t.Errorf("SelectDay = %+v, want %+v", got, tc.want)
			}
		})
	}
}
