package calendar

import (
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

// MonthLayout formats the month parameter of the date picker.
const MonthLayout = "2006-01"

// Day is one cell of a month grid.
type Day struct {
	Date     time.Time
	InMonth  bool
	HasEvent bool
	InRange  bool
}

// Key formats d with DayLayout.
func (d Day) Key() string { return d.Date.Format(DayLayout) }

// Month is a Monday-first grid of whole weeks covering one month.
type Month struct {
	First time.Time
	Weeks [][7]Day
}

// Prev returns the first day of the previous month.
func (m Month) Prev() time.Time { return m.First.AddDate(0, -1, 0) }

// Next returns the first day of the next month.
func (m Month) Next() time.Time { return m.First.AddDate(0, 1, 0) }

// NewMonth builds the grid for the month containing t. Days in days are
// marked as having events; days inside r are marked as selected.
func NewMonth(t time.Time, loc *time.Location, days map[string]bool, r Range) Month {
	t = t.In(loc)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	// Go weeks start on Sunday (0); shift so Monday is column 0.
	offset := (int(first.Weekday()) + 6) % 7
	cur := first.AddDate(0, 0, -offset)

	var lo, hi string
	if !r.From.IsZero() {
		lo = r.From.In(loc).Format(DayLayout)
		hi = lo
		if !r.To.IsZero() {
			hi = r.To.In(loc).Format(DayLayout)
		}
	}

	m := Month{First: first}
	for {
		var week [7]Day
		for i := range week {
			key := cur.Format(DayLayout)
			week[i] = Day{
				Date:     cur,
				InMonth:  cur.Month() == first.Month(),
				HasEvent: days[key],
				// DayLayout sorts lexically in date order.
				InRange: lo != "" && key >= lo && key <= hi,
			}
			cur = cur.AddDate(0, 0, 1)
		}
		m.Weeks = append(m.Weeks, week)
		if cur.Month() != first.Month() {
			break
		}
	}
	return m
}

// DefaultMonth picks the month to show: the selected range start, else the
// first event's start, else now.
func DefaultMonth(r Range, events []model.Event, now time.Time) time.Time {
	if !r.From.IsZero() {
		return r.From
	}
	if len(events) > 0 && !events[0].StartDate.IsZero() {
		return events[0].StartDate
	}
	return now
}

// SelectDay returns the range after clicking d in the date picker. The first
// click sets From, the second sets To (swapping if needed), and a click on a
// complete range starts a new one.
func SelectDay(r Range, d time.Time) Range {
	if r.From.IsZero() || !r.To.IsZero() {
		return Range{From: d}
	}
	if d.Before(r.From) {
		return Range{From: d, To: r.From}
	}
	return Range{From: r.From, To: d}
}
