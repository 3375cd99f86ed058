package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// Tolerance is the absolute slack applied to both bounds. Decoded values
// such as 130*0.01 may land a few ULPs past a bound that is exactly
// representable in the catalog.
const Tolerance = 1e-9

// InBounds reports whether v lies within [def.Min, def.Max]. NaN and
// infinities are never in bounds.
func InBounds(v float64, def profile.MapDefinition) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= def.Min-Tolerance && v <= def.Max+Tolerance
}

func outOfRange(def profile.MapDefinition, y, x int, v float64) *ecuerr.OutOfRangeError {
	return &ecuerr.OutOfRangeError{
		Map:   def.Name,
		Row:   y,
		Col:   x,
		Value: v,
		Min:   def.Min,
		Max:   def.Max,
	}
}

// checkCell tests v and the value it rounds to on the raw grid. Values that
// overflow a cell are left to the encoder.
func checkCell(def profile.MapDefinition, y, x int, v float64) error {
	if !InBounds(v, def) {
		return outOfRange(def, y, x, v)
	}
	raw, _, ok := codec.ToRaw(v, def.Factor)
	if !ok {
		return nil
	}
	if stored := float64(raw) * def.Factor; !InBounds(stored, def) {
		err := outOfRange(def, y, x, v)
		err.Rounded = true
		err.Stored = stored
		return err
	}
	return nil
}

// Validate checks every cell of m against the map's inclusive bounds and
// returns the first violation in row-major order. Shape is checked first.
// A cell passes only if both the given value and the value it is stored as
// lie within bounds.
func Validate(m codec.Matrix, def profile.MapDefinition) error {
	if err := codec.CheckShape(m, def); err != nil {
		return err
	}
	for y, row := range m {
		for x, v := range row {
			if err := checkCell(def, y, x, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateAll returns every violation instead of stopping at the first.
// Returns an empty slice if the matrix is valid.
func ValidateAll(m codec.Matrix, def profile.MapDefinition) []error {
	if err := codec.CheckShape(m, def); err != nil {
		return []error{err}
	}

	var errors []error
	for y, row := range m {
		for x, v := range row {
			if err := checkCell(def, y, x, v); err != nil {
				errors = append(errors, err)
			}
		}
	}
	return errors
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errors []error) string {
	if len(errors) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Map validation failed with %d error(s):\n", len(errors)))

	for i, err := range errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}
