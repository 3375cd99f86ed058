package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sanya94592-stack/ecu-editor/internal/csvmap"
)

// View implements tea.Model
func (m Model) View() string {
	var content, footer string
	switch {
	case m.Editing:
		content = m.gridContent()
		footer = m.Help.View(m.InputKeys)
	case m.Screen == ScreenGrid:
		content = m.gridContent()
		footer = m.Help.View(m.GridKeys)
	default:
		content = m.listContent()
		footer = m.Help.View(m.ListKeys)
	}
	return RenderApplicationContainer(BuildHeaderContent(m.Session.Source()), content, footer, m.Width, m.Height)
}

func (m Model) sessionLine() string {
	p := m.Session.Profile()
	line := fmt.Sprintf("Profile %s  |  %d bytes  |  state: %s", p.Name, p.Size, m.Session.State())
	if report, err := m.Session.Verify(); err == nil {
		switch {
		case !report.Verifiable:
			line += fmt.Sprintf("  |  checksum 0x%08X (not verifiable)", report.Stored)
		case report.Valid():
			line += "  |  checksum ok"
		default:
			line += "  |  checksum stale"
		}
	}
	if n := len(m.Session.History()); n > 0 {
		line += fmt.Sprintf("  |  %d undoable", n)
	}
	return SubtitleStyle.Render(line)
}

func (m Model) listContent() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Calibration maps"))
	b.WriteString("\n")
	b.WriteString(m.sessionLine())
	b.WriteString("\n\n")

	for i, def := range m.Session.Maps() {
		label := fmt.Sprintf("%-20s 0x%06X  %2dx%-2d  %g..%g %s", def.Name, def.Offset, def.Rows, def.Cols, def.Min, def.Max, def.Unit)
		b.WriteString(RenderMenuItem(label, i == m.MapCursor))
		b.WriteString("\n")
	}

	b.WriteString(m.messageLine())
	return b.String()
}

func (m Model) gridContent() string {
	def := m.Current.Def

	var b strings.Builder
	title := def.Name
	if m.Dirty() {
		title += " *"
	}
	b.WriteString(RenderTitle(title))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("0x%X  %dx%d  factor %g  safe %g..%g %s",
		def.Offset, def.Rows, def.Cols, def.Factor, def.Min, def.Max, def.Unit)))
	b.WriteString("\n\n")
	b.WriteString(m.renderGrid())
	b.WriteString("\n")

	if m.Editing {
		b.WriteString(fmt.Sprintf("\nCell [%d,%d]: %s\n", m.Row, m.Col, m.Input.View()))
	} else {
		b.WriteString(fmt.Sprintf("\nCell [%d,%d] = %s %s\n", m.Row, m.Col, m.formatCell(m.Pending[m.Row][m.Col]), def.Unit))
	}

	b.WriteString(m.messageLine())
	return b.String()
}

// renderGrid draws the working copy. Changed cells are highlighted and the
// cursor cell is inverted.
func (m Model) renderGrid() string {
	prec := csvmap.Decimals(m.Current.Def.Factor)
	width := 4
	for _, row := range m.Pending {
		for _, v := range row {
			if n := len(fmt.Sprintf("%.*f", prec, v)); n > width {
				width = n
			}
		}
	}

	var b strings.Builder
	b.WriteString(AxisStyle.Render("    "))
	for x := 0; x < m.Pending.Cols(); x++ {
		b.WriteString(AxisStyle.Render(fmt.Sprintf(" %*d", width, x)))
	}
	b.WriteString("\n")

	for y, row := range m.Pending {
		b.WriteString(AxisStyle.Render(fmt.Sprintf("%3d ", y)))
		for x, v := range row {
			text := fmt.Sprintf("%*.*f", width, prec, v)
			style := CellStyle
			if v != m.Current.Values[y][x] {
				style = ChangedCellStyle
			}
			if y == m.Row && x == m.Col {
				style = CursorCellStyle
			}
			b.WriteString(" " + style.Render(text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) messageLine() string {
	var lines []string
	if m.ConfirmQuit {
		lines = append(lines, WarningStyle.Render("Unsaved changes. Press q again to quit without saving."))
	}
	if m.Status != "" {
		lines = append(lines, StatusStyle.Render(m.Status))
	}
	if m.Err != nil {
		lines = append(lines, ErrorBoxStyle.Render("✗ "+m.Err.Error()))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, lines...)
}
