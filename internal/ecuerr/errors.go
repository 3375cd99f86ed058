package ecuerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not defined in this package
	KindUnknown Kind = iota
	// KindUnknownProfile indicates the requested ECU profile is not in the registry
	KindUnknownProfile
	// KindUnknownMap indicates the requested map is not defined by the profile
	KindUnknownMap
	// KindSizeMismatch indicates the image length differs from the profile size
	KindSizeMismatch
	// KindOutOfBounds indicates a map or field region exceeds the buffer
	KindOutOfBounds
	// KindOutOfRange indicates an edited value violates the map's safety bounds
	KindOutOfRange
	// KindValueOverflow indicates an encoded raw value does not fit in uint16
	KindValueOverflow
	// KindShape indicates a matrix does not match the map geometry
	KindShape
	// KindParse indicates non-numeric cell input at a front-end boundary
	KindParse
	// KindIO indicates a read or write failure
	KindIO
	// KindState indicates an operation was invoked in the wrong session state
	KindState
)

// String returns a human-readable name for the error kind
func (k Kind) String() string {
	switch k {
	case KindUnknownProfile:
		return "Unknown Profile"
	case KindUnknownMap:
		return "Unknown Map"
	case KindSizeMismatch:
		return "Size Mismatch"
	case KindOutOfBounds:
		return "Out Of Bounds"
	case KindOutOfRange:
		return "Out Of Range"
	case KindValueOverflow:
		return "Value Overflow"
	case KindShape:
		return "Shape Mismatch"
	case KindParse:
		return "Parse Error"
	case KindIO:
		return "I/O Error"
	case KindState:
		return "Invalid State"
	case KindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// kinded is implemented by every error type in this package.
type kinded interface {
	error
	Kind() Kind
}

// UnknownProfileError is returned when a profile name is not in the registry.
type UnknownProfileError struct {
	// Name is the requested profile name
	Name string
	// Available lists the profile names the registry does know
	Available []string
}

func (e *UnknownProfileError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown ECU profile %q", e.Name)
	}
	return fmt.Sprintf("unknown ECU profile %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Kind implements kinded
func (e *UnknownProfileError) Kind() Kind { return KindUnknownProfile }

// UnknownMapError is returned when a map name is not defined by a profile.
type UnknownMapError struct {
	Profile   string
	Name      string
	Available []string
}

func (e *UnknownMapError) Error() string {
	return fmt.Sprintf("profile %q has no map %q (available: %s)",
		e.Profile, e.Name, strings.Join(e.Available, ", "))
}

// Kind implements kinded
func (e *UnknownMapError) Kind() Kind { return KindUnknownMap }

// SizeMismatchError is returned when an image does not have the exact size
// declared by the selected profile.
type SizeMismatchError struct {
	Profile string
	Want    int
	Got     int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("image size mismatch for profile %q: expected %d bytes (0x%X), got %d bytes (0x%X)",
		e.Profile, e.Want, e.Want, e.Got, e.Got)
}

// Kind implements kinded
func (e *SizeMismatchError) Kind() Kind { return KindSizeMismatch }

// OutOfBoundsError is returned when a region [Offset, Offset+Length) does not
// fit inside a buffer of BufferLen bytes.
type OutOfBoundsError struct {
	// Region names what was being accessed (map name or "checksum")
	Region    string
	Offset    int
	Length    int
	BufferLen int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s region 0x%X+%d exceeds buffer of %d bytes",
		e.Region, e.Offset, e.Length, e.BufferLen)
}

// Kind implements kinded
func (e *OutOfBoundsError) Kind() Kind { return KindOutOfBounds }

// OutOfRangeError reports a physical value outside a map's inclusive bounds.
// When Rounded is set, Value itself was in bounds but Stored, the value the
// cell would actually hold after rounding to the raw grid, is not.
type OutOfRangeError struct {
	Map     string
	Row     int
	Col     int
	Value   float64
	Min     float64
	Max     float64
	Rounded bool
	Stored  float64
}

func (e *OutOfRangeError) Error() string {
	if e.Rounded {
		return fmt.Sprintf("%s: value %g at [%d,%d] would be stored as %g (allowed %g..%g)",
			e.Map, e.Value, e.Row, e.Col, e.Stored, e.Min, e.Max)
	}
	return fmt.Sprintf("%s: unsafe value %g at [%d,%d] (allowed %g..%g)",
		e.Map, e.Value, e.Row, e.Col, e.Min, e.Max)
}

// Kind implements kinded
func (e *OutOfRangeError) Kind() Kind { return KindOutOfRange }

// ValueOverflowError reports a physical value whose encoded raw integer does
// not fit in an unsigned 16-bit cell.
type ValueOverflowError struct {
	Map   string
	Row   int
	Col   int
	Value float64
	// Raw is the rounded value/factor before range checking
	Raw float64
}

func (e *ValueOverflowError) Error() string {
	return fmt.Sprintf("%s: value %g at [%d,%d] encodes to raw %.0f, outside 0..65535",
		e.Map, e.Value, e.Row, e.Col, e.Raw)
}

// Kind implements kinded
func (e *ValueOverflowError) Kind() Kind { return KindValueOverflow }

// ShapeError reports a matrix whose dimensions differ from the map geometry.
type ShapeError struct {
	Map      string
	WantRows int
	WantCols int
	GotRows  int
	// GotCols is the length of the first offending row
	GotCols int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: matrix is %dx%d, map expects %dx%d",
		e.Map, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// Kind implements kinded
func (e *ShapeError) Kind() Kind { return KindShape }

// ParseError reports a cell that could not be parsed as a number.
// Row and Col are zero-based matrix coordinates; Line is the source line
// (1-based) when the input came from a file, or 0.
type ParseError struct {
	Row  int
	Col  int
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("[%d,%d]", e.Row, e.Col)
	if e.Line > 0 {
		where = fmt.Sprintf("line %d %s", e.Line, where)
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid cell %s %q: %v", where, e.Text, e.Err)
	}
	return fmt.Sprintf("invalid cell %s %q", where, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Kind implements kinded
func (e *ParseError) Kind() Kind { return KindParse }

// IOError wraps a filesystem failure during load or save.
type IOError struct {
	// Op is the operation that failed (e.g. "read", "write", "rename")
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Kind implements kinded
func (e *IOError) Kind() Kind { return KindIO }

// StateError is returned when a session operation is not valid in the
// session's current state (for example decoding before any image is loaded).
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.State)
}

// Kind implements kinded
func (e *StateError) Kind() Kind { return KindState }

// KindOf returns the Kind of the first error in err's chain that belongs to
// this package, or KindUnknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsOutOfRange checks if an error is a bounds violation
func IsOutOfRange(err error) bool {
	return KindOf(err) == KindOutOfRange
}

// IsValueOverflow checks if an error is a uint16 overflow
func IsValueOverflow(err error) bool {
	return KindOf(err) == KindValueOverflow
}

// IsSizeMismatch checks if an error is an image size mismatch
func IsSizeMismatch(err error) bool {
	return KindOf(err) == KindSizeMismatch
}

// IsOutOfBounds checks if an error is a region overrun
func IsOutOfBounds(err error) bool {
	return KindOf(err) == KindOutOfBounds
}

// IsUnknownProfile checks if an error is an unknown profile lookup
func IsUnknownProfile(err error) bool {
	return KindOf(err) == KindUnknownProfile
}

// IsParseError checks if an error is a cell parse failure
func IsParseError(err error) bool {
	return KindOf(err) == KindParse
}

// IsValidationError reports whether err was raised before any mutation
// because the edit itself was rejected.
func IsValidationError(err error) bool {
	switch KindOf(err) {
	case KindOutOfRange, KindValueOverflow, KindShape, KindOutOfBounds:
		return true
	}
	return false
}

// Hint returns user-facing troubleshooting lines for an error.
func Hint(err error) []string {
	switch KindOf(err) {
	case KindUnknownProfile:
		return []string{
			"List known profiles: ecu-edit profiles",
			"Add custom profiles with --profiles-file <file.yaml>",
		}
	case KindUnknownMap:
		return []string{"List maps for the profile: ecu-edit maps <profile>"}
	case KindSizeMismatch:
		return []string{
			"Check that --profile matches the ECU this image was read from",
			"Partial or padded dumps are rejected; re-read the full image",
		}
	case KindOutOfBounds:
		return []string{
			"The profile geometry does not fit this buffer",
			"Verify the map offsets in your profiles file",
		}
	case KindOutOfRange:
		return []string{
			"The value exceeds the safety bounds configured for this map",
			"No bytes were written; correct the value and retry",
		}
	case KindValueOverflow:
		return []string{
			"Map cells are unsigned 16-bit; value/factor must be in 0..65535",
			"Negative physical values cannot be stored in this map",
		}
	case KindShape:
		return []string{"The edited matrix must have exactly the map's rows and columns"}
	case KindParse:
		return []string{"Every cell must be a plain decimal number (e.g. 1.05)"}
	case KindIO:
		return []string{
			"Check the file path and permissions",
			"The in-memory image was not modified",
		}
	case KindState:
		return []string{"Load an image before decoding or editing maps"}
	default:
		return nil
	}
}
