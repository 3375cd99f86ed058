// Package ecuerr defines the error kinds reported by the calibration core.
//
// Every failure the core can surface has a dedicated struct carrying enough
// context to act on (map name, coordinates, values, bounds, sizes). Each type
// reports its Kind, so callers can classify wrapped errors with KindOf:
//
//	if err := sess.ApplyEdit("Fuel Map", m); err != nil {
//	    switch ecuerr.KindOf(err) {
//	    case ecuerr.KindOutOfRange, ecuerr.KindValueOverflow:
//	        // nothing was written; ask the user to fix the value
//	    }
//	}
//
// Hint returns short troubleshooting lines suitable for UI failure boxes.
package ecuerr
