// Package render draws calibration maps, catalog tables and map diffs for the
// terminal using pterm.
//
// Every function returns a string so callers choose the writer. Cells are
// coloured by their position between the map's current minimum and maximum;
// a map whose cells are all equal renders neutral grey.
package render
