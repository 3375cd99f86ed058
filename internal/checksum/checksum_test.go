package checksum

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

func janvar() *profile.ECUProfile {
	return &profile.ECUProfile{Name: "Janvar 7.2+", Size: 524288, ChecksumAddr: 0x1FFFC}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0},
		{"single", []byte{0xFF}, 0xFF},
		{"several", []byte{1, 2, 3, 250}, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum(tt.data); got != tt.want {
				t.Errorf("Sum() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSumPastUint16(t *testing.T) {
	data := bytes.Repeat([]byte{0xFF}, 1000)
	if got := Sum(data); got != 255000 {
		t.Errorf("Sum() = %d, want 255000", got)
	}
}

func TestComputeExcludesTrailer(t *testing.T) {
	image := []byte{1, 2, 3, 4, 100, 100, 100, 100}
	if got := Compute(image, 4); got != 10 {
		t.Errorf("Compute(trailer=4) = %d, want 10", got)
	}
	if got := Compute(image, 0); got != 410 {
		t.Errorf("Compute(trailer=0) = %d, want 410", got)
	}
	if got := Compute(image, 20); got != 0 {
		t.Errorf("Compute(trailer > len) = %d, want 0", got)
	}
}

func TestPatchAllZeroJanvar(t *testing.T) {
	image := make([]byte, 524288)
	// noise in the trailer must not affect the sum
	copy(image[len(image)-4:], []byte{0xAA, 0xBB, 0xCC, 0xDD})

	csum, err := Patch(image, janvar())
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if csum != 0 {
		t.Errorf("Patch() = 0x%X, want 0", csum)
	}
	if !bytes.Equal(image[0x1FFFC:0x20000], []byte{0, 0, 0, 0}) {
		t.Errorf("checksum field = % X, want 00 00 00 00", image[0x1FFFC:0x20000])
	}
}

func TestPatchWritesLittleEndian(t *testing.T) {
	image := make([]byte, 524288)
	image[0] = 0x34
	image[1] = 0x12
	image[2] = 0xFF

	csum, err := Patch(image, janvar())
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	want := uint32(0x34 + 0x12 + 0xFF)
	if csum != want {
		t.Errorf("Patch() = 0x%X, want 0x%X", csum, want)
	}
	if got := binary.LittleEndian.Uint32(image[0x1FFFC:]); got != want {
		t.Errorf("stored field = 0x%X, want 0x%X", got, want)
	}
}

func TestPatchDeterministicOnCopies(t *testing.T) {
	base := make([]byte, 524288)
	for i := range base {
		base[i] = byte(i * 7)
	}

	first := append([]byte(nil), base...)
	second := append([]byte(nil), base...)

	c1, err := Patch(first, janvar())
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	c2, err := Patch(second, janvar())
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if c1 != c2 || !bytes.Equal(first, second) {
		t.Error("patching identical buffers must give identical results")
	}
}

func TestPatchOutOfBounds(t *testing.T) {
	p := &profile.ECUProfile{Name: "Tiny", Size: 8, ChecksumAddr: 6}
	_, err := Patch(make([]byte, 8), p)
	if !ecuerr.IsOutOfBounds(err) {
		t.Errorf("Patch() error = %v, want OutOfBoundsError", err)
	}
}

func TestPatchCustomTrailer(t *testing.T) {
	p := &profile.ECUProfile{Name: "Bench", Size: 16, ChecksumAddr: 12, ChecksumTrailer: 8}
	image := []byte{1, 1, 1, 1, 1, 1, 1, 1, 9, 9, 9, 9, 0, 0, 0, 0}

	csum, err := Patch(image, p)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if csum != 8 {
		t.Errorf("Patch() = %d, want 8", csum)
	}
}

func TestVerify(t *testing.T) {
	image := make([]byte, 524288)
	image[100] = 5

	r, err := Verify(image, janvar())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if r.Verifiable {
		t.Error("field at 0x1FFFC is inside the summed region and must not be verifiable")
	}
	if r.Valid() {
		t.Error("Valid() = true for an unverifiable report")
	}
	if r.Computed != 5 || r.Stored != 0 {
		t.Errorf("Report = %+v", r)
	}
	if r.Status() != "UNVERIFIABLE" {
		t.Errorf("Status() = %q, want UNVERIFIABLE", r.Status())
	}
	if !strings.Contains(r.String(), "cannot verify") {
		t.Errorf("String() = %q, want a cannot verify note", r.String())
	}
	if strings.Contains(r.String(), "MISMATCH") {
		t.Errorf("String() = %q reports a mismatch", r.String())
	}
}

func TestRepatchInsideRegion(t *testing.T) {
	image := make([]byte, 524288)
	image[10] = 1

	// Each patch adds the previous field value into the next sum, so the
	// stored value keeps moving and can never be confirmed by recomputing.
	for i, want := range []uint32{1, 2, 3} {
		csum, err := Patch(image, janvar())
		if err != nil {
			t.Fatalf("Patch() error = %v", err)
		}
		if csum != want {
			t.Errorf("patch %d = %d, want %d", i, csum, want)
		}
		r, err := Verify(image, janvar())
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if r.Verifiable || r.Stored != want {
			t.Errorf("patch %d report = %+v", i, r)
		}
	}
}

func TestVerifyFieldOutsideRegion(t *testing.T) {
	p := &profile.ECUProfile{Name: "Tail", Size: 16, ChecksumAddr: 12}
	image := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0, 0, 0, 0}

	if _, err := Patch(image, p); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	r, err := Verify(image, p)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !r.Verifiable || !r.Valid() || r.Computed != 78 {
		t.Errorf("Report = %+v, want valid with sum 78", r)
	}
	if r.Status() != "OK" {
		t.Errorf("Status() = %q, want OK", r.Status())
	}

	image[0]++
	r, _ = Verify(image, p)
	if r.Valid() || r.Status() != "MISMATCH" {
		t.Errorf("Report after corruption = %+v (%s)", r, r.Status())
	}
}
