package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. The accent is the cool end of the map heatmap; red doubles as the
// "unsafe value" color.
var (
	AccentColor  = lipgloss.Color("#2AA198") // Teal - borders, dividers
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#E5534B")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#6E7681")
	TextColor    = lipgloss.Color("#F0F0F0")
)

// Width bounds for boxes. Map grids are rendered by pterm and are not
// affected.
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	mutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	textStyle    = lipgloss.NewStyle().Foreground(TextColor)
	noteStyle    = mutedStyle.Italic(true)
	paramKey     = mutedStyle.PaddingLeft(2)
	resultKey    = mutedStyle.Width(18)
	errorMessage = lipgloss.NewStyle().Foreground(ErrorColor)
)

// look is a status marker and the style it is drawn in
type look struct {
	marker string
	label  string
	style  lipgloss.Style
	color  lipgloss.Color
}

func newLook(marker, label string, color lipgloss.Color, bold bool) look {
	return look{
		marker: marker,
		label:  label,
		style:  lipgloss.NewStyle().Foreground(color).Bold(bold),
		color:  color,
	}
}

var stepLooks = map[StepStatus]look{
	StepPending:  newLook("·", "", MutedColor, false),
	StepRunning:  newLook("●", "", WarningColor, false),
	StepComplete: newLook("✓", "", SuccessColor, false),
	StepFailed:   newLook("✗", "", ErrorColor, true),
	StepSkipped:  newLook("⊘", "", MutedColor, false),
}

var resultLooks = map[ResultType]look{
	ResultSuccess: newLook("✓", "SUCCESS", SuccessColor, true),
	ResultFailure: newLook("✗", "FAILED", ErrorColor, true),
	ResultWarning: newLook("⚠", "WARNING", WarningColor, true),
}

// banner renders "   ✓  SUCCESS  ─  title" in the look's style
func (l look) banner(title string) string {
	return l.style.Render("   " + l.marker + "  " + l.label + "  ─  " + title)
}

// GetTerminalWidth returns the stdout width clamped to the supported range
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return clampWidth(width)
}

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// headerBox is the rounded frame around command headers
func headerBox(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Width(width - 2)
}

// resultBox is the double frame around result and warning boxes
func resultBox(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}

// hintBox frames troubleshooting hints inside a failure box
func hintBox(width int) lipgloss.Style {
	inner := width - 12
	if inner < 40 {
		inner = 40
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(inner).
		Padding(0, 1).
		MarginLeft(3)
}

func divider(width int) string {
	return lipgloss.NewStyle().Foreground(AccentColor).Render(strings.Repeat("─", width))
}
