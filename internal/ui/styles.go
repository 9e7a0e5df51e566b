package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorFailure = 203 // red
	colorNotice  = 179 // amber
)

// Progress markers used by the migration commands.
const (
	MarkSuccess = "✓"
	MarkFailure = "✗"
	MarkSkipped = "~"
	MarkDown    = "↓"
	MarkUp      = "↑"
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return render(colorSuccess, s) }

// RenderFailure returns s in red.
func RenderFailure(s string) string { return render(colorFailure, s) }

// RenderNotice returns s in amber.
func RenderNotice(s string) string { return render(colorNotice, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
