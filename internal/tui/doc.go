// Package tui implements the interactive map editor started by
// "ecu-edit edit".
//
// The editor is a single Bubble Tea model with two screens: a list of the
// profile's maps and a cell grid for the selected map. Cell changes are kept
// in a working copy until applied, at which point the whole matrix goes
// through Session.ApplyEdit. Rejected edits leave the session untouched and
// the error is shown under the grid.
//
// Saving is delegated to a SaveFunc supplied by the caller so that backups,
// confirmation and config bookkeeping stay in the CLI. The save runs as a
// tea.Cmd and all input except ctrl+c is ignored until it reports back.
package tui
