// Package codec converts between a map's raw byte region and a matrix of
// physical values.
//
// Cells are unsigned 16-bit little-endian integers stored row-major starting
// at the map offset. Decoding multiplies each raw cell by the map factor.
// Encoding divides by the factor and rounds half away from zero (math.Round);
// results outside 0..65535 are rejected with ecuerr.ValueOverflowError rather
// than wrapped. Both directions are pure functions: Encode returns bytes and
// leaves writing them into an image to the session.
package codec
