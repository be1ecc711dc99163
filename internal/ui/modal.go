package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/edgeboard/internal/edges"
)

// modalChrome is the lines ModalStyle adds around its content
// (border 2 + vertical padding 2) plus the title and hint rows.
const modalChrome = 8

// detailModal shows one edge in a scrollable viewport.
type detailModal struct {
	edge edges.Edge
	vp   viewport.Model
}

func newDetailModal(e edges.Edge, width, height int) detailModal {
	m := detailModal{edge: e}
	m.resize(width, height)
	return m
}

func (m *detailModal) resize(width, height int) {
	inner := modalWidth(width) - 4
	content := detailContent(m.edge, inner)
	h := min(lipgloss.Height(content), max(height-modalChrome-2, 3))
	m.vp = viewport.New(inner, h)
	m.vp.SetContent(content)
}

func (m *detailModal) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return cmd
}

func (m detailModal) view(width int, viewOnly bool) string {
	title := ModalTitle.Render(m.edge.Player) + "  " + TypeBadge.Render(m.edge.Type)

	hint := StatusBarKey.Render("esc") + StatusBarText.Render(":close  ")
	if viewOnly {
		hint += StatusBarText.Render("view only  ")
	} else {
		hint += StatusBarKey.Render("b") + StatusBarText.Render(":bet  ")
	}
	if !m.vp.AtTop() || !m.vp.AtBottom() {
		hint += StatusBarKey.Render("j/k") + StatusBarText.Render(":scroll")
	}

	body := lipgloss.JoinVertical(lipgloss.Left, title, "", m.vp.View(), "", hint)
	return ModalStyle.Width(modalWidth(width)).Render(body)
}

// detailContent renders every field of e, wrapped to width.
func detailContent(e edges.Edge, width int) string {
	var lines []string
	field := func(label, value string) {
		if value == "" {
			return
		}
		lines = append(lines, ModalLabel.Render(label)+value)
	}

	field("Matchup", e.Matchup())
	field("Confidence", formatPercent(e.ConfidenceScore()))
	field("Expected value", formatSignedPercent(e.EV()))
	field("Line", e.Line.String())
	field("Odds", e.Odds.String())

	wrap := lipgloss.NewStyle().Width(max(width, 10))
	if e.Reasoning != "" {
		lines = append(lines, "", DebugHeaderStyle.Render("Reasoning"), wrap.Render(e.Reasoning))
	}
	if e.Notes != "" {
		lines = append(lines, "", DebugHeaderStyle.Render("Notes"), wrap.Render(e.Notes))
	}
	if metrics := edges.FlattenMetrics(e.Metrics); len(metrics) > 0 {
		lines = append(lines, "", DebugHeaderStyle.Render("Metrics"))
		for _, m := range metrics {
			lines = append(lines, fmt.Sprintf("  %-24s %s", truncateRunes(m.Key, 24), m.Value))
		}
	}
	return strings.Join(lines, "\n")
}

// boxBounds returns the top-left corner and size of box centered in
// a width×height area, matching overlay.
func boxBounds(box string, width, height int) (x, y, w, h int) {
	w, h = lipgloss.Width(box), lipgloss.Height(box)
	return max((width-w)/2, 0), max((height-h)/2, 0), w, h
}

// inside reports whether (px, py) hits the rectangle.
func inside(px, py, x, y, w, h int) bool {
	return px >= x && px < x+w && py >= y && py < y+h
}
