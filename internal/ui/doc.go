// Package ui provides terminal output components for the ecu-edit CLI.
//
// Components are rendered with Lipgloss and follow a "print once" pattern;
// the interactive editor lives in package tui.
//
//   - Header: command banner showing operation name and parameters
//   - Progress: progress bar with step list
//   - Result: success, failure and warning boxes
//   - Confirm: typed confirmation before overwriting an image
//
// Runner ties them together for commands that change an image:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:   "Map Import",
//	    Command: "ecu-edit import stock.bin fuel.csv",
//	    Params:  []ui.Param{{Key: "Profile", Value: "M73"}},
//	    Steps:   []string{"Read CSV", "Apply edit", "Save image"},
//	})
//
//	_, err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "256 cells")
//	    return []ui.Param{{Key: "Checksum", Value: "0x0001F3A2"}}, nil
//	})
//
// Failure boxes take their troubleshooting lines from ecuerr.Hint.
//
// # Logging Integration
//
// zap logging stays silent unless ECU_EDITOR_LOG_LEVEL is set, so these
// components are the only output in normal use.
package ui
