// Package csvmap exports calibration maps to CSV and imports edited CSV back
// into a matrix.
//
// The layout is a few "#" comment lines with map metadata, a header row
// starting with `Row\Col` followed by column indices, and one row per map row
// with the row index in the first column:
//
//	# Fuel Map
//	# Offset: 0x60000
//	# Size: 16x16
//	Row\Col,0,1,2,...
//	0,1.00,1.02,1.05,...
//
// This is the boundary where free text becomes numbers, so it is where
// ecuerr.ParseError is raised. Imported matrices still go through the
// session's validator before they reach an image.
package csvmap
