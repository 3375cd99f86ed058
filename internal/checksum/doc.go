// Package checksum implements the additive image checksum.
//
// The checksum is the wrapping uint32 sum of every byte of the image except
// the final trailer bytes (4 for the built-in profiles). It is stored as a
// little-endian uint32 at the profile's checksum address. For the built-in
// profiles that address lies well inside the summed region; the field is
// still included in the sum as-is. Callers that need a stable result across
// repeated patches should patch a copy of the image.
package checksum
