package ui

import (
	"fmt"
	"strings"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType
	Title           string   // e.g., "Map imported"
	Details         []Param  // Key-value details to display
	Error           error    // Error (for failure results)
	Troubleshooting []string // Troubleshooting tips (for failure results)
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewErrorResult creates a failure result box with troubleshooting tips
// chosen from the error kind.
func NewErrorResult(title string, err error) *Result {
	return NewFailureResult(title, err, ecuerr.Hint(err))
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	if r.Type == ResultFailure {
		return r.renderFailure(width)
	}
	l, ok := resultLooks[r.Type]
	if !ok {
		l = resultLooks[ResultSuccess]
	}
	return r.renderDetails(width, l)
}

// renderDetails renders a success or warning box
func (r *Result) renderDetails(width int, l look) string {
	lines := []string{"", l.banner(r.Title), ""}

	for _, d := range r.Details {
		keyStyled := resultKey.Render(fmt.Sprintf("   %s:", d.Key))
		valueStyled := textStyle.Render(d.Value)
		lines = append(lines, keyStyled+" "+valueStyled)
	}
	lines = append(lines, "")

	return resultBox(width, l.color).Render(strings.Join(lines, "\n"))
}

// renderFailure renders a failure result box
func (r *Result) renderFailure(width int) string {
	failed := resultLooks[ResultFailure]
	lines := []string{"", failed.banner(r.Title), ""}

	if r.Error != nil {
		lines = append(lines, errorMessage.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return resultBox(width, failed.color).Render(strings.Join(lines, "\n"))
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{
		mutedStyle.Bold(true).Render("Troubleshooting:"),
		"",
	}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, mutedStyle.Render("  • "+tip))
	}
	return hintBox(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
