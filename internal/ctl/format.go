// Package ctl implements the client-side commands for wavctl.
// It talks to a running wavrecd over HTTP and WebSocket and renders the
// results to the terminal.
package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// Full scale of the converter, for the level meter.
const adcFullScale = 4095

// colorEnabled reports whether stdout is a terminal. When output is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// stateColor returns the ANSI color code appropriate for a recorder state.
func stateColor(state string) string {
	if !colorEnabled() {
		return ""
	}
	switch state {
	case "RECORDING":
		return red
	case "STOPPING":
		return yellow
	case "STOPPED":
		return green
	case "FAILED":
		return red + bold
	case "BOOTING", "IDLE":
		return dim
	default:
		return white
	}
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + reset
}

// header returns a bold section header, or plain text when color is off.
func header(title string) string {
	if colorEnabled() {
		return bold + title + reset
	}
	return title
}

func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration renders a time.Duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatSeconds renders fractional seconds of audio, keeping tenths under a
// minute.
func formatSeconds(sec float64) string {
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	return formatDuration(time.Duration(sec * float64(time.Second)))
}

// formatBytes renders a byte count as a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// levelBar draws the span between lo and hi on a 0..4095 scale as a bar of
// the given width, e.g. "   ======   ".
func levelBar(lo, hi uint32, width int) string {
	if hi < lo || width <= 0 {
		return strings.Repeat(" ", width)
	}
	if hi > adcFullScale {
		hi = adcFullScale
	}
	start := int(lo) * width / (adcFullScale + 1)
	end := int(hi)*width/(adcFullScale+1) + 1
	if end > width {
		end = width
	}
	bar := strings.Repeat(" ", start) + colorize(green, strings.Repeat("=", end-start)) + strings.Repeat(" ", width-end)
	return bar
}
