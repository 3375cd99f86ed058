package compare

import (
	"fmt"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// MapDiff holds the cell-wise difference of one map between two images.
// Delta is b - a.
type MapDiff struct {
	Def   profile.MapDefinition
	Delta codec.Matrix

	Changed     int
	Total       int
	MeanChange  float64
	MaxIncrease float64
	MaxDecrease float64
}

// Identical reports whether no cell changed.
func (d *MapDiff) Identical() bool {
	return d.Changed == 0
}

// ChangedPercent returns the share of changed cells in percent.
func (d *MapDiff) ChangedPercent() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Changed) / float64(d.Total) * 100
}

// Maps diffs two decoded views of the same map.
func Maps(a, b *codec.CalibrationMap) (*MapDiff, error) {
	if err := codec.CheckShape(b.Values, a.Def); err != nil {
		return nil, err
	}
	if err := codec.CheckShape(a.Values, a.Def); err != nil {
		return nil, err
	}

	def := a.Def
	d := &MapDiff{
		Def:   def,
		Delta: codec.NewMatrix(def.Rows, def.Cols),
		Total: def.Cells(),
	}

	var sum float64
	for y := 0; y < def.Rows; y++ {
		for x := 0; x < def.Cols; x++ {
			delta := b.Values[y][x] - a.Values[y][x]
			d.Delta[y][x] = delta
			if delta == 0 {
				continue
			}
			d.Changed++
			sum += delta
			if delta > d.MaxIncrease {
				d.MaxIncrease = delta
			}
			if delta < d.MaxDecrease {
				d.MaxDecrease = delta
			}
		}
	}
	if d.Changed > 0 {
		d.MeanChange = sum / float64(d.Changed)
	}
	return d, nil
}

// Images diffs every map of p between two images of that profile.
func Images(a, b []byte, p *profile.ECUProfile) ([]*MapDiff, error) {
	for _, img := range [][]byte{a, b} {
		if len(img) != p.Size {
			return nil, &ecuerr.SizeMismatchError{Profile: p.Name, Want: p.Size, Got: len(img)}
		}
	}

	diffs := make([]*MapDiff, 0, len(p.Maps))
	for _, def := range p.Maps {
		ma, err := codec.Decode(a, def)
		if err != nil {
			return nil, err
		}
		mb, err := codec.Decode(b, def)
		if err != nil {
			return nil, err
		}
		d, err := Maps(ma, mb)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", def.Name, err)
		}
		diffs = append(diffs, d)
	}
	return diffs, nil
}

// Range is a run of differing bytes.
type Range struct {
	Offset int
	Length int
	// Region is the map containing the run, "checksum", or "" when the run
	// lies outside every known region
	Region string
}

func (r Range) String() string {
	where := r.Region
	if where == "" {
		where = "unmapped"
	}
	return fmt.Sprintf("0x%X+%d (%s)", r.Offset, r.Length, where)
}

// ByteRanges returns the runs of bytes that differ between a and b, labelled
// with the profile region they start in. Both images must have the same
// length.
func ByteRanges(a, b []byte, p *profile.ECUProfile) ([]Range, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("images differ in length: %d vs %d", len(a), len(b))
	}

	var ranges []Range
	for i := 0; i < len(a); {
		if a[i] == b[i] {
			i++
			continue
		}
		start := i
		region := regionAt(p, start)
		for i < len(a) && a[i] != b[i] && regionAt(p, i) == region {
			i++
		}
		ranges = append(ranges, Range{Offset: start, Length: i - start, Region: region})
	}
	return ranges, nil
}

func regionAt(p *profile.ECUProfile, off int) string {
	if p == nil {
		return ""
	}
	if off >= p.ChecksumAddr && off < p.ChecksumAddr+profile.ChecksumFieldSize {
		return "checksum"
	}
	for _, def := range p.Maps {
		if off >= def.Offset && off < def.End() {
			return def.Name
		}
	}
	return ""
}
