package codec

import (
	"math"

	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// Matrix is a row-major grid of physical values. Matrix[y][x] is the cell at
// row y, column x.
type Matrix [][]float64

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for y := range m {
		m[y] = make([]float64, cols)
	}
	return m
}

// Rows returns the number of rows.
func (m Matrix) Rows() int {
	return len(m)
}

// Cols returns the length of the first row, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	c := make(Matrix, len(m))
	for y, row := range m {
		c[y] = append([]float64(nil), row...)
	}
	return c
}

// MinMax returns the smallest and largest cell values. An empty matrix
// returns 0, 0.
func (m Matrix) MinMax() (float64, float64) {
	if m.Rows() == 0 || m.Cols() == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range m {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Scale returns a copy with every cell multiplied by k.
func (m Matrix) Scale(k float64) Matrix {
	c := m.Clone()
	for _, row := range c {
		for x := range row {
			row[x] *= k
		}
	}
	return c
}

// Equal reports whether both matrices have the same shape and every pair of
// cells differs by at most tol.
func (m Matrix) Equal(other Matrix, tol float64) bool {
	if len(m) != len(other) {
		return false
	}
	for y := range m {
		if len(m[y]) != len(other[y]) {
			return false
		}
		for x := range m[y] {
			if math.Abs(m[y][x]-other[y][x]) > tol {
				return false
			}
		}
	}
	return true
}

// CalibrationMap is a decoded view of one map. It holds no reference to the
// image it came from, only the definition needed to write itself back.
type CalibrationMap struct {
	Def    profile.MapDefinition
	Values Matrix
}

// Name returns the map name.
func (c *CalibrationMap) Name() string {
	return c.Def.Name
}
