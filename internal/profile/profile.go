package profile

import (
	"fmt"
	"math"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
)

// CellSize is the width in bytes of one map cell (uint16 little-endian).
const CellSize = 2

// ChecksumFieldSize is the width in bytes of the checksum field.
const ChecksumFieldSize = 4

// DefaultChecksumTrailer is the number of trailing image bytes excluded from
// the checksum when a profile does not say otherwise.
const DefaultChecksumTrailer = 4

// MapDefinition describes one calibration map inside an image.
type MapDefinition struct {
	// Name is the display name, unique within its profile
	Name string `yaml:"name"`

	// Offset is the byte offset of the first cell
	Offset int `yaml:"offset"`

	// Rows and Cols give the matrix geometry; cells are stored row-major
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`

	// Factor converts raw cells to physical units (physical = raw * Factor)
	Factor float64 `yaml:"factor"`

	// Min and Max are inclusive physical safety bounds
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	Unit        string `yaml:"unit,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Cells returns the number of cells in the map.
func (d MapDefinition) Cells() int {
	return d.Rows * d.Cols
}

// ByteLen returns the size of the map region in bytes.
func (d MapDefinition) ByteLen() int {
	return d.Cells() * CellSize
}

// End returns the offset one past the last byte of the map region.
func (d MapDefinition) End() int {
	return d.Offset + d.ByteLen()
}

// String returns a one-line summary of the map.
func (d MapDefinition) String() string {
	return fmt.Sprintf("%s @0x%X %dx%d x%g [%g..%g]", d.Name, d.Offset, d.Rows, d.Cols, d.Factor, d.Min, d.Max)
}

// ECUProfile describes one known ECU type. Profiles returned by a Registry
// are shared and must not be modified.
type ECUProfile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Size is the exact image length in bytes
	Size int `yaml:"size"`

	// ChecksumAddr is where the 4-byte checksum is written
	ChecksumAddr int `yaml:"checksum_addr"`

	// ChecksumTrailer is the number of trailing bytes excluded from the sum
	ChecksumTrailer int `yaml:"checksum_trailer,omitempty"`

	Maps []MapDefinition `yaml:"maps"`
}

// Map returns the definition with the given name.
func (p *ECUProfile) Map(name string) (*MapDefinition, error) {
	for i := range p.Maps {
		if p.Maps[i].Name == name {
			return &p.Maps[i], nil
		}
	}
	return nil, &ecuerr.UnknownMapError{
		Profile:   p.Name,
		Name:      name,
		Available: p.MapNames(),
	}
}

// MapNames returns the map names in catalog order.
func (p *ECUProfile) MapNames() []string {
	names := make([]string, 0, len(p.Maps))
	for _, m := range p.Maps {
		names = append(names, m.Name)
	}
	return names
}

// String returns a human-readable representation of the profile.
func (p *ECUProfile) String() string {
	return fmt.Sprintf("%s (%d bytes, %d maps)", p.Name, p.Size, len(p.Maps))
}

// Validate checks the profile's geometry. Every map must lie entirely inside
// the image and carry a positive factor and ordered bounds.
func (p *ECUProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if p.Size <= 0 {
		return fmt.Errorf("profile %q: size must be positive, got %d", p.Name, p.Size)
	}
	if p.ChecksumAddr < 0 || p.ChecksumAddr+ChecksumFieldSize > p.Size {
		return fmt.Errorf("profile %q: checksum field 0x%X does not fit in %d bytes", p.Name, p.ChecksumAddr, p.Size)
	}
	if p.ChecksumTrailer < 0 || p.ChecksumTrailer > p.Size {
		return fmt.Errorf("profile %q: checksum trailer %d out of range", p.Name, p.ChecksumTrailer)
	}

	seen := make(map[string]bool, len(p.Maps))
	for _, m := range p.Maps {
		if m.Name == "" {
			return fmt.Errorf("profile %q: map name cannot be empty", p.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("profile %q: duplicate map %q", p.Name, m.Name)
		}
		seen[m.Name] = true

		if m.Rows <= 0 || m.Cols <= 0 {
			return fmt.Errorf("profile %q, map %q: geometry %dx%d must be positive", p.Name, m.Name, m.Rows, m.Cols)
		}
		if m.Factor <= 0 || math.IsInf(m.Factor, 0) || math.IsNaN(m.Factor) {
			return fmt.Errorf("profile %q, map %q: factor must be a positive number, got %g", p.Name, m.Name, m.Factor)
		}
		if m.Min > m.Max {
			return fmt.Errorf("profile %q, map %q: min %g exceeds max %g", p.Name, m.Name, m.Min, m.Max)
		}
		if m.Offset < 0 || m.End() > p.Size {
			return fmt.Errorf("profile %q, map %q: region 0x%X..0x%X exceeds image size %d",
				p.Name, m.Name, m.Offset, m.End(), p.Size)
		}
	}
	return nil
}

// clone returns a deep copy with defaults applied.
func (p *ECUProfile) clone() *ECUProfile {
	c := *p
	c.Maps = append([]MapDefinition(nil), p.Maps...)
	if c.ChecksumTrailer == 0 {
		c.ChecksumTrailer = DefaultChecksumTrailer
	}
	return &c
}
