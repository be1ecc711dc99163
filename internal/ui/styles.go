package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarning   = lipgloss.Color("214") // Amber
	colorError     = lipgloss.Color("196") // Red
	colorInfo      = lipgloss.Color("39")  // Blue
	colorSurface   = lipgloss.Color("236")
)

// TitleStyle for the dashboard header.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// SelectedCard style for the highlighted edge.
var SelectedCard = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalCard style for the other edges.
var NormalCard = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// CardDetail style for the second line of a card.
var CardDetail = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// TypeBadge style for the edge type label.
var TypeBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(colorSurface).
	Padding(0, 1).
	MarginRight(1)

// SkeletonStyle for placeholder cards while loading.
var SkeletonStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 1)

// TileStyle for one summary tile.
var TileStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(0, 1).
	MarginRight(1)

// TileLabel style for the caption of a summary tile.
var TileLabel = lipgloss.NewStyle().
	Foreground(colorSecondary)

// TileValue style for the number of a summary tile.
var TileValue = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// ControlLabel style for filter control captions.
var ControlLabel = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ControlValue style for the current filter values.
var ControlValue = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(colorSurface).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// ErrorBanner style for the stale-data banner.
var ErrorBanner = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("52")).
	Padding(0, 1)

// BetaBanner style for the beta-mode warning.
var BetaBanner = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(colorWarning).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// SearchPrompt style for the "/" prompt.
var SearchPrompt = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// ModalStyle frames the detail modal and the bet form.
var ModalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// ModalTitle style for the modal heading.
var ModalTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)

// ModalLabel style for field names in the modal.
var ModalLabel = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Width(14)

// toastStyles colors a toast by kind.
var toastStyles = map[string]lipgloss.Style{
	"success": lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorSuccess).Padding(0, 1),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(colorInfo).Padding(0, 1),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(colorError).Padding(0, 1),
}

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted).
	Padding(1, 1)

// DebugHeaderStyle for section headings in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
