package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/abelbrown/edgeboard/internal/api"
	"github.com/abelbrown/edgeboard/internal/edges"
)

// ErrViewOnly rejects a bet while the dashboard is view-only.
// The rejection happens before any request is made.
var ErrViewOnly = errors.New("betting is disabled in view-only mode")

const (
	fieldStake = iota
	fieldOdds
	fieldCount
)

// betForm collects stake and odds for one edge.
type betForm struct {
	edge       edges.Edge
	inputs     [fieldCount]textinput.Model
	focus      int
	err        string
	submitting bool
}

func newBetForm(e edges.Edge) betForm {
	var f betForm
	f.edge = e

	for i := range f.inputs {
		ti := textinput.New()
		ti.PromptStyle = SearchPrompt
		ti.CharLimit = 12
		f.inputs[i] = ti
	}
	f.inputs[fieldStake].Prompt = "Stake $ "
	f.inputs[fieldStake].Placeholder = "25.00"
	f.inputs[fieldOdds].Prompt = "Odds    "
	f.inputs[fieldOdds].Placeholder = "-110"
	if e.Odds.IsNum {
		f.inputs[fieldOdds].SetValue(formatOdds(decimal.NewFromFloat(e.Odds.Num)))
	}
	f.inputs[fieldStake].Focus()
	return f
}

// focusNext moves focus to the other input.
func (f *betForm) focusNext() tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + 1) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *betForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	f.err = ""
	return cmd
}

// request parses the inputs into a validated bet request.
func (f betForm) request() (api.BetRequest, error) {
	stake, err := parseAmount(f.inputs[fieldStake].Value())
	if err != nil {
		return api.BetRequest{}, fmt.Errorf("stake: %w", err)
	}
	odds, err := parseAmount(f.inputs[fieldOdds].Value())
	if err != nil {
		return api.BetRequest{}, fmt.Errorf("odds: %w", err)
	}
	req := api.NewBetRequest(f.edge, stake, odds)
	if err := req.Validate(); err != nil {
		return api.BetRequest{}, err
	}
	return req, nil
}

func (f betForm) view(width int) string {
	var b strings.Builder
	b.WriteString(ModalTitle.Render("Place bet"))
	b.WriteString("\n")
	b.WriteString(f.edge.Player + "  " + CardDetail.Render(f.edge.Matchup()))
	if !f.edge.Line.IsZero() {
		b.WriteString(CardDetail.Render("line " + f.edge.Line.String()))
	}
	b.WriteString("\n\n")

	for _, in := range f.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case f.submitting:
		b.WriteString(StatusBarText.Render("Submitting..."))
	case f.err != "":
		b.WriteString(ErrorStyle.Render(f.err))
	default:
		if req, err := f.request(); err == nil {
			b.WriteString(StatusBarText.Render("Returns $" + req.Payout().StringFixed(2) + " if it wins"))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(StatusBarKey.Render("enter") + StatusBarText.Render(":submit  ") +
		StatusBarKey.Render("tab") + StatusBarText.Render(":next field  ") +
		StatusBarKey.Render("esc") + StatusBarText.Render(":cancel"))

	return ModalStyle.Width(modalWidth(width)).Render(b.String())
}

// parseAmount reads a decimal, tolerating "$", "+" and spaces.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, errors.New("required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}
	return d, nil
}

// formatOdds renders American odds with an explicit sign.
func formatOdds(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}

func modalWidth(width int) int {
	w := 72
	if w > width-4 {
		w = width - 4
	}
	return max(w, 30)
}

// overlay centers box over a width×height area.
func overlay(box string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
