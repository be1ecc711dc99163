package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/edgeboard/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing poll stats and recent events.
// Pure function with no side effects. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, now time.Time, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	// --- Stats section (keyed lookups, not map iteration) ---
	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Poller Stats"))
	lines = append(lines, fmt.Sprintf("  Triggers:   %d run, %d debounced, %d superseded",
		stats[otel.KindPollTrigger], stats[otel.KindPollDebounced], stats[otel.KindPollSuperseded]))
	lines = append(lines, fmt.Sprintf("  Cycles:     %d ok, %d exhausted, %d retries",
		stats[otel.KindPollSuccess], stats[otel.KindPollExhausted], stats[otel.KindPollRetry]))
	lines = append(lines, fmt.Sprintf("  Bets:       %d placed, %d rejected, %d errors",
		stats[otel.KindBetPlaced], stats[otel.KindBetRejected], stats[otel.KindBetError]))
	if last, ok := ring.LastOf(otel.KindPollSuccess); ok {
		lines = append(lines, fmt.Sprintf("  Last poll:  %d edges in %.0fms, %s ago",
			last.Count, float64(last.Dur)/float64(time.Millisecond), formatAge(now.Sub(last.Time))))
	}
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	// --- Recent events section ---
	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-18s", formatAge(now.Sub(e.Time)), string(e.Kind))
		if e.Gen != 0 {
			line += fmt.Sprintf("  gen:%d", e.Gen)
		}
		if e.Attempt != 0 {
			line += fmt.Sprintf("  try:%d", e.Attempt)
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := min(76, width-4)
	if panelWidth < 20 {
		panelWidth = 20
	}

	content := strings.Join(lines, "\n")
	return DebugPanel.Width(panelWidth).Render(content)
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(sessionID string, width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	sid := ""
	if sessionID != "" {
		sid = "  session " + truncateRunes(sessionID, 8)
	}
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys + StatusBarText.Render(sid))
}
