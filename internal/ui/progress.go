package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// done reports whether the step has finished one way or another
func (s StepStatus) done() bool {
	return s == StepComplete || s == StepFailed || s == StepSkipped
}

// Step is a single step in a multi-step operation such as "read image,
// parse CSV, validate, write map, save".
type Step struct {
	Number  int // 1-based
	Name    string
	Status  StepStatus
	Message string // e.g., "512 bytes", "0x0001F3A2"
}

// Progress tracks a fixed list of steps and renders a bar plus step list.
type Progress struct {
	Label   string
	Steps   []Step
	Current int     // Step currently running (1-based)
	Percent float64 // 0.0 - 1.0
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress tracker for the named steps
func NewProgress(label string, names ...string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}

	p := &Progress{Label: label, Steps: steps}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width and resizes the bar to fit
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width

	barWidth := width - 20 // Leave room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// UpdateStep updates a step's status and optional message
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	step := &p.Steps[number-1]
	step.Status = status
	step.Message = message

	if status == StepRunning {
		p.Current = number
		return
	}

	if status.done() {
		finished := 0
		for _, s := range p.Steps {
			if s.Status == StepComplete || s.Status == StepSkipped {
				finished++
			}
		}
		p.Percent = float64(finished) / float64(len(p.Steps))
	}
}

// Render returns the bar followed by the step list
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(titleStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]",
		p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, len(p.Steps))))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		lines = append(lines, p.renderStepLine(step))
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

// renderStepLine renders "  [2/5] Validating values          ✓  (256 cells)"
func (p *Progress) renderStepLine(step Step) string {
	l, ok := stepLooks[step.Status]
	if !ok {
		l = stepLooks[StepPending]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("  [%d/%d] ", step.Number, len(p.Steps)))
	b.WriteString(l.style.Render(step.Name))

	// Align markers at a consistent column
	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(l.style.Render(l.marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(noteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback is how an operation reports progress to a Runner.
type StepCallback func(number int, status StepStatus, message string)
