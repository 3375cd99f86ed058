package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step command
type RunnerConfig struct {
	Title   string    // Command title (e.g., "Map Import")
	Command string    // Full command (e.g., "ecu-edit import stock.bin fuel.csv")
	Params  []Param   // Parameters to display in header
	Steps   []string  // Names for each step
	Output  io.Writer // Output writer (default: os.Stdout)
}

// Runner orchestrates the header, step list and result box for a command
// that changes an image.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: NewProgress("", config.Steps...).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// Operation is the work done by a Runner. It reports progress through onStep
// and returns the details shown in the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Run prints the header, executes op, and prints a success or failure box.
// The error from op is returned unchanged.
func (r *Runner) Run(ctx context.Context, op Operation) ([]Param, error) {
	start := time.Now()

	fmt.Fprintln(r.output, r.header.Render())
	fmt.Fprintln(r.output)

	var details []Param
	err := ctx.Err()
	if err == nil {
		details, err = op(ctx, r.onStep)
	}
	duration := time.Since(start).Round(time.Millisecond)

	fmt.Fprintln(r.output)
	if err != nil {
		result := NewErrorResult(r.config.Title+" failed", err).SetWidth(r.width)
		fmt.Fprintln(r.output, result.Render())
		return nil, err
	}

	result := NewSuccessResult(r.config.Title+" complete", details...).SetWidth(r.width)
	result.AddDetail("Duration", duration.String())
	fmt.Fprintln(r.output, result.Render())
	return details, nil
}

// onStep updates progress and prints finished steps
func (r *Runner) onStep(number int, status StepStatus, message string) {
	if number < 1 || number > r.progress.Total() {
		return
	}
	r.progress.UpdateStep(number, status, message)

	line := r.progress.renderStepLine(r.progress.Steps[number-1])
	if status.done() {
		fmt.Fprintln(r.output, line)
	} else if status == StepRunning && r.output == os.Stdout && IsTerminal() {
		// Overwritten when the step completes
		fmt.Fprint(r.output, line+"\r")
	}
}

// PrintFailure prints a failure box with hints for err to out.
func PrintFailure(out io.Writer, title string, err error) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, NewErrorResult(title, err).Render())
}

// PrintSuccess prints a success box to out.
func PrintSuccess(out io.Writer, title string, details ...Param) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, NewSuccessResult(title, details...).Render())
}

// PrintWarning prints a warning box to out.
func PrintWarning(out io.Writer, title string, details ...Param) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, NewWarningResult(title, details...).Render())
}
