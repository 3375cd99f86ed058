package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one key/value line. Slices of Param keep display order stable.
type Param struct {
	Key   string
	Value string
}

// Header represents a command header with title, command, and parameters.
// Printed at the start of commands that change an image.
type Header struct {
	Title   string  // e.g., "MAP IMPORT"
	Command string  // e.g., "ecu-edit import stock.bin fuel.csv"
	Params  []Param // e.g., {"Profile", "M73"}, {"Map", "Fuel VE"}
	Width   int     // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	titleLine := titleStyle.Render(strings.ToUpper(h.Title))
	commandLine := mutedStyle.PaddingLeft(2).Render(h.Command)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	if len(h.Params) == 0 {
		return headerBox(width).Render(topSection)
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	rule := divider(dividerWidth)

	var paramLines []string
	for _, p := range h.Params {
		keyStyled := paramKey.Render(p.Key + ":")
		valueStyled := textStyle.Render(p.Value)
		paramLines = append(paramLines, keyStyled+" "+valueStyled)
	}
	paramsSection := strings.Join(paramLines, "\n")

	content := lipgloss.JoinVertical(lipgloss.Left, topSection, rule, paramsSection)
	return headerBox(width).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
