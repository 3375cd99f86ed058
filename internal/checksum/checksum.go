package checksum

import (
	"encoding/binary"
	"fmt"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// Sum adds every byte of b into a uint32 accumulator, wrapping on overflow.
func Sum(b []byte) uint32 {
	var csum uint32
	for _, v := range b {
		csum += uint32(v)
	}
	return csum
}

// Compute returns the sum of all bytes of image except the final trailer
// bytes. A trailer longer than the image sums nothing.
func Compute(image []byte, trailer int) uint32 {
	end := len(image) - trailer
	if end <= 0 {
		return 0
	}
	return Sum(image[:end])
}

func checkField(image []byte, addr int) error {
	if addr < 0 || addr+profile.ChecksumFieldSize > len(image) {
		return &ecuerr.OutOfBoundsError{
			Region:    "checksum",
			Offset:    addr,
			Length:    profile.ChecksumFieldSize,
			BufferLen: len(image),
		}
	}
	return nil
}

// trailerOf returns the profile's trailer, falling back to the default for
// profiles built outside a Registry.
func trailerOf(p *profile.ECUProfile) int {
	if p.ChecksumTrailer == 0 {
		return profile.DefaultChecksumTrailer
	}
	return p.ChecksumTrailer
}

// Patch computes the checksum of image and writes it little-endian at
// p.ChecksumAddr. The summed region is independent of the field location, so
// when the field lies inside that region patching changes what a later
// Compute over the same buffer would return.
func Patch(image []byte, p *profile.ECUProfile) (uint32, error) {
	if err := checkField(image, p.ChecksumAddr); err != nil {
		return 0, err
	}
	csum := Compute(image, trailerOf(p))
	binary.LittleEndian.PutUint32(image[p.ChecksumAddr:], csum)
	return csum, nil
}

// Stored reads the little-endian checksum field at addr.
func Stored(image []byte, addr int) (uint32, error) {
	if err := checkField(image, addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(image[addr:]), nil
}

// Report describes the checksum state of an image.
//
// When the checksum field lies inside the summed region the stored value
// took part in its own sum, so no recomputation can reproduce it. Such a
// report is not Verifiable and only the stored value is meaningful.
type Report struct {
	Addr       int    `json:"addr"`
	Stored     uint32 `json:"stored"`
	Computed   uint32 `json:"computed"`
	Verifiable bool   `json:"verifiable"`
}

// Valid reports whether the field can be checked and matches the computed sum.
func (r Report) Valid() bool {
	return r.Verifiable && r.Stored == r.Computed
}

// Status is "OK", "MISMATCH" or "UNVERIFIABLE".
func (r Report) Status() string {
	switch {
	case !r.Verifiable:
		return "UNVERIFIABLE"
	case r.Stored != r.Computed:
		return "MISMATCH"
	}
	return "OK"
}

// String returns a one-line summary of the report.
func (r Report) String() string {
	if !r.Verifiable {
		return fmt.Sprintf("checksum @0x%X: stored 0x%08X (cannot verify: field inside summed region)", r.Addr, r.Stored)
	}
	return fmt.Sprintf("checksum @0x%X: stored 0x%08X, computed 0x%08X (%s)", r.Addr, r.Stored, r.Computed, r.Status())
}

// Verify compares the stored checksum with a freshly computed one. The image
// is not modified.
func Verify(image []byte, p *profile.ECUProfile) (Report, error) {
	stored, err := Stored(image, p.ChecksumAddr)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Addr:       p.ChecksumAddr,
		Stored:     stored,
		Computed:   Compute(image, trailerOf(p)),
		Verifiable: p.ChecksumAddr >= len(image)-trailerOf(p),
	}, nil
}
