package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/edgeboard/internal/edges"
	"github.com/abelbrown/edgeboard/internal/filter"
)

// cardHeight is the number of lines one card occupies.
const cardHeight = 2

// skeletonCards is how many placeholder cards the loading page shows.
const skeletonCards = 4

// renderSkeleton renders the full-page loading state.
func renderSkeleton(spin string, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("edgeboard"))
	b.WriteString("\n\n")
	b.WriteString(" " + spin + " Loading edges...\n\n")

	bar := strings.Repeat("░", max(min(width-4, 60), 10))
	short := strings.Repeat("░", max(min(width-4, 60)/2, 5))
	for i := 0; i < skeletonCards; i++ {
		b.WriteString(SkeletonStyle.Render(bar))
		b.WriteString("\n")
		b.WriteString(SkeletonStyle.Render(short))
		b.WriteString("\n")
	}
	return b.String()
}

// renderErrorPage renders the full-page error shown when nothing ever loaded.
func renderErrorPage(msg string, width int) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("edgeboard"))
	b.WriteString("\n\n")
	b.WriteString(ErrorStyle.Width(max(width-2, 20)).Render(msg))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Press R to retry or q to quit."))
	return b.String()
}

// renderSummary renders the summary tiles for snap.
func renderSummary(snap *edges.Snapshot) string {
	total := snap.Summary.TotalEdges
	if total == 0 {
		total = snap.Len()
	}

	tiles := []string{
		tile("Edges", fmt.Sprintf("%d", total)),
		tile("Avg confidence", formatPercent(edges.Finite(snap.Summary.AvgConfidence))),
		tile("Data quality", formatPercent(edges.Finite(snap.DataQuality))),
	}
	if f := snap.Summary.DataFreshness.String(); f != "" {
		tiles = append(tiles, tile("Freshness", f))
	}
	if !snap.Summary.GeneratedAt.IsZero() {
		tiles = append(tiles, tile("Generated", snap.Summary.GeneratedAt.Local().Format("Jan 2 15:04")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func tile(label, value string) string {
	return TileStyle.Render(TileLabel.Render(label) + "\n" + TileValue.Render(value))
}

// renderControls renders the current sort and filter selection.
func renderControls(fs filter.State, shown, total int) string {
	control := func(k, label, value string) string {
		return StatusBarKey.Render(k) + " " + ControlLabel.Render(label+": ") + ControlValue.Render(value)
	}
	parts := []string{
		control("s", "sort", fs.Sort.Label()),
		control("t", "type", orAll(fs.EdgeType)),
		control("m", "team", orAll(fs.Team)),
	}
	if q := strings.TrimSpace(fs.Search); q != "" {
		parts = append(parts, control("/", "search", q))
	}
	line := " " + strings.Join(parts, "   ")
	line += "   " + StatusBarText.Render(fmt.Sprintf("%d of %d", shown, total))
	return line
}

func orAll(v string) string {
	if v == "" {
		return filter.All
	}
	return v
}

// renderCards renders list with the cursor card highlighted, scrolled so the
// cursor stays visible within height lines.
func renderCards(list []edges.Edge, cursor, width, height int) string {
	perPage := cardsPerPage(height)
	offset := cardOffset(cursor, perPage)

	var cards []string
	for i := offset; i < len(list) && i < offset+perPage; i++ {
		cards = append(cards, renderCard(list[i], i == cursor, width))
	}
	return strings.Join(cards, "\n")
}

func cardsPerPage(height int) int {
	return max(height/cardHeight, 1)
}

// cardOffset is the index of the first visible card.
func cardOffset(cursor, perPage int) int {
	if cursor >= perPage {
		return cursor - perPage + 1
	}
	return 0
}

// renderCard renders one edge as two lines.
func renderCard(e edges.Edge, selected bool, width int) string {
	stats := fmt.Sprintf("%s  EV %s", formatPercent(e.ConfidenceScore()), formatSignedPercent(e.EV()))
	badge := TypeBadge.Render(e.Type)
	room := width - lipgloss.Width(badge) - lipgloss.Width(stats) - 4
	head := badge + truncateRunes(e.Player+"  "+e.Matchup(), max(room, 10))
	gap := max(width-lipgloss.Width(head)-lipgloss.Width(stats)-2, 1)
	first := head + strings.Repeat(" ", gap) + stats

	var detail []string
	if !e.Line.IsZero() {
		detail = append(detail, "line "+e.Line.String())
	}
	if !e.Odds.IsZero() {
		detail = append(detail, "odds "+e.Odds.String())
	}
	if e.Reasoning != "" {
		detail = append(detail, e.Reasoning)
	}
	second := truncateRunes(strings.Join(detail, "  ·  "), max(width-4, 10))

	style := NormalCard
	if selected {
		style = SelectedCard
	}
	return style.Width(width).Render(first) + "\n" + CardDetail.Render(second)
}

// renderEmpty renders the empty-list message.
func renderEmpty(filtered bool) string {
	if filtered {
		return HelpStyle.Render("No edges match your filters. Press x to reset.")
	}
	return HelpStyle.Render("No edges right now. New edges show up on the next refresh.")
}

// renderBetaBanner renders the beta warning with an optional disclaimer.
func renderBetaBanner(banner, disclaimer string, width int) string {
	text := banner
	if disclaimer != "" {
		if text != "" {
			text += " "
		}
		text += disclaimer
	}
	return BetaBanner.Width(width).Render(text)
}

// renderStaleBanner renders the error banner shown above stale data.
func renderStaleBanner(msg string, width int) string {
	return ErrorBanner.Width(width).Render(msg + "  Showing the last loaded edges. Press R to retry.")
}

// renderStatusBar renders the bottom bar.
func renderStatusBar(status string, width int) string {
	hint := func(k, desc string) string {
		return StatusBarKey.Render(k) + StatusBarText.Render(":"+desc)
	}
	keys := strings.Join([]string{
		hint("j/k", "move"),
		hint("enter", "details"),
		hint("r", "refresh"),
		hint("/", "search"),
		hint("x", "reset"),
		hint("q", "quit"),
	}, "  ")
	return StatusBar.Width(width).Render(status + "  " + keys)
}

// formatPercent renders a 0..1 ratio as a percentage.
func formatPercent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// formatSignedPercent renders a ratio with an explicit sign.
func formatSignedPercent(f float64) string {
	return fmt.Sprintf("%+.1f%%", f*100)
}

// formatSince renders how long ago t was.
func formatSince(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

// truncateRunes cuts s to n runes, adding an ellipsis when it cuts.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
