// Package compare reports differences between two firmware images of the
// same profile, both per map (physical deltas and summary statistics) and as
// raw runs of differing bytes.
package compare
