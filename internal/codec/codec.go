package codec

import (
	"encoding/binary"
	"math"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// MaxRaw is the largest raw cell value.
const MaxRaw = math.MaxUint16

// checkRegion verifies the map region fits inside a buffer of n bytes. The
// profile already guarantees this for matching images; the check guards
// against a mismatched profile/image pairing.
func checkRegion(def profile.MapDefinition, n int) error {
	if def.Offset < 0 || def.End() > n {
		return &ecuerr.OutOfBoundsError{
			Region:    def.Name,
			Offset:    def.Offset,
			Length:    def.ByteLen(),
			BufferLen: n,
		}
	}
	return nil
}

// DecodeRaw returns the raw uint16 cells of a map in row-major order.
func DecodeRaw(image []byte, def profile.MapDefinition) ([]uint16, error) {
	if err := checkRegion(def, len(image)); err != nil {
		return nil, err
	}

	raw := make([]uint16, def.Cells())
	region := image[def.Offset:def.End()]
	for i := range raw {
		raw[i] = binary.LittleEndian.Uint16(region[i*profile.CellSize:])
	}
	return raw, nil
}

// Decode reads a map from image and converts each cell to physical units
// (raw * factor). Cell y*cols+x becomes Values[y][x].
func Decode(image []byte, def profile.MapDefinition) (*CalibrationMap, error) {
	raw, err := DecodeRaw(image, def)
	if err != nil {
		return nil, err
	}

	values := NewMatrix(def.Rows, def.Cols)
	for y := 0; y < def.Rows; y++ {
		for x := 0; x < def.Cols; x++ {
			values[y][x] = float64(raw[y*def.Cols+x]) * def.Factor
		}
	}

	return &CalibrationMap{Def: def, Values: values}, nil
}

// ToRaw converts a physical value to its raw cell value using
// round-half-away-from-zero on value/factor. ok is false when the result
// does not fit in a uint16; rounded is returned either way for reporting.
func ToRaw(value, factor float64) (raw uint16, rounded float64, ok bool) {
	rounded = math.Round(value / factor)
	if math.IsNaN(rounded) || rounded < 0 || rounded > MaxRaw {
		return 0, rounded, false
	}
	return uint16(rounded), rounded, true
}

// CheckShape verifies m has exactly def.Rows rows of def.Cols cells.
func CheckShape(m Matrix, def profile.MapDefinition) error {
	if len(m) != def.Rows {
		return &ecuerr.ShapeError{
			Map: def.Name, WantRows: def.Rows, WantCols: def.Cols,
			GotRows: len(m), GotCols: m.Cols(),
		}
	}
	for _, row := range m {
		if len(row) != def.Cols {
			return &ecuerr.ShapeError{
				Map: def.Name, WantRows: def.Rows, WantCols: def.Cols,
				GotRows: len(m), GotCols: len(row),
			}
		}
	}
	return nil
}

// Encode converts a physical matrix back to the map's byte layout. It
// returns exactly rows*cols*2 bytes and never touches an image; writing the
// bytes is the caller's job. The first cell (row-major) that does not fit in
// a uint16 is reported as a ValueOverflowError.
func Encode(m Matrix, def profile.MapDefinition) ([]byte, error) {
	if err := CheckShape(m, def); err != nil {
		return nil, err
	}

	out := make([]byte, def.ByteLen())
	for y, row := range m {
		for x, v := range row {
			raw, rounded, ok := ToRaw(v, def.Factor)
			if !ok {
				return nil, &ecuerr.ValueOverflowError{
					Map:   def.Name,
					Row:   y,
					Col:   x,
					Value: v,
					Raw:   rounded,
				}
			}
			binary.LittleEndian.PutUint16(out[(y*def.Cols+x)*profile.CellSize:], raw)
		}
	}
	return out, nil
}
