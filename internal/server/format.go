package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/kalender/internal/model"
)

var monthNames = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

var monthAbbrev = [...]string{
	"jan.", "feb.", "mar.", "apr.", "mai", "jun.",
	"jul.", "aug.", "sep.", "okt.", "nov.", "des.",
}

var weekdayAbbrev = [...]string{"ma", "ti", "on", "to", "fr", "lø", "sø"}

// formatDate renders t as "6. mai 2025".
func formatDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + ". " + monthNames[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// formatDateTime renders t as "6. mai 2025 kl. 09:00".
func formatDateTime(t time.Time) string {
	return formatDate(t) + " kl. " + t.Format("15:04")
}

// formatSpan renders an event's start and end, or just the start when the
// end is unset.
func formatSpan(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	if end.IsZero() {
		return formatDateTime(start)
	}
	return formatDateTime(start) + " – " + formatDateTime(end)
}

// formatMonth renders the first of a month as "mai 2025".
func formatMonth(t time.Time) string {
	return monthNames[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

func dayNumber(t time.Time) string { return strconv.Itoa(t.Day()) + "." }

func monthShort(t time.Time) string { return monthAbbrev[t.Month()-1] }

// categoryLine joins the category label and areas as shown above a title:
// "Seminar · ÅKP, Mafoss".
func categoryLine(ev model.Event) string {
	var parts []string
	if ev.Category != "" {
		parts = append(parts, model.CategoryLabel(ev.Category))
	}
	if len(ev.Areas) > 0 {
		parts = append(parts, strings.Join(ev.Areas, ", "))
	}
	return strings.Join(parts, " · ")
}
