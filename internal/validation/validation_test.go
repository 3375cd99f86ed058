package validation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

func fuelDef() profile.MapDefinition {
	return profile.MapDefinition{Name: "Fuel Map", Offset: 0, Rows: 2, Cols: 2, Factor: 0.01, Min: 0.7, Max: 1.3}
}

func filled(rows, cols int, v float64) codec.Matrix {
	m := codec.NewMatrix(rows, cols)
	for y := range m {
		for x := range m[y] {
			m[y][x] = v
		}
	}
	return m
}

func TestInBounds(t *testing.T) {
	def := fuelDef()
	tests := []struct {
		name  string
		value float64
		want  bool
	}{
		{"inside", 1.0, true},
		{"at min", 0.7, true},
		{"at max", 1.3, true},
		{"decoded max with float noise", 130 * 0.01, true},
		{"just above max", 1.31, false},
		{"below min", 0.69, false},
		{"NaN", math.NaN(), false},
		{"+Inf", math.Inf(1), false},
		{"-Inf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InBounds(tt.value, def); got != tt.want {
				t.Errorf("InBounds(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidateJanvarFuelRejects(t *testing.T) {
	def := fuelDef()
	m := filled(2, 2, 1.0)
	m[1][0] = 1.35

	err := Validate(m, def)
	if !ecuerr.IsOutOfRange(err) {
		t.Fatalf("Validate() error = %v, want OutOfRangeError", err)
	}

	oor := err.(*ecuerr.OutOfRangeError)
	if oor.Row != 1 || oor.Col != 0 || oor.Value != 1.35 || oor.Max != 1.3 {
		t.Errorf("OutOfRangeError = %+v", oor)
	}
}

func TestValidateM73IgnitionAboveMax(t *testing.T) {
	def := profile.MapDefinition{Name: "Ignition", Rows: 1, Cols: 3, Factor: 0.1, Min: -10, Max: 50}

	if err := Validate(codec.Matrix{{-10, 0, 50}}, def); err != nil {
		t.Errorf("Validate() at the bounds error = %v, want nil", err)
	}
	if err := Validate(codec.Matrix{{0, 51, 0}}, def); !ecuerr.IsOutOfRange(err) {
		t.Errorf("Validate(51) error = %v, want OutOfRangeError", err)
	}
}

func TestValidateFirstViolationRowMajor(t *testing.T) {
	def := fuelDef()
	m := codec.Matrix{{1.0, 2.0}, {0.1, 1.0}}

	err := Validate(m, def)
	oor, ok := err.(*ecuerr.OutOfRangeError)
	if !ok {
		t.Fatalf("Validate() error = %v, want OutOfRangeError", err)
	}
	if oor.Row != 0 || oor.Col != 1 {
		t.Errorf("first violation at [%d,%d], want [0,1]", oor.Row, oor.Col)
	}
}

func TestValidateShape(t *testing.T) {
	err := Validate(codec.Matrix{{1.0}}, fuelDef())
	if ecuerr.KindOf(err) != ecuerr.KindShape {
		t.Errorf("Validate() error = %v, want ShapeError", err)
	}
}

func TestValidateAll(t *testing.T) {
	def := fuelDef()

	if errs := ValidateAll(filled(2, 2, 1.0), def); len(errs) != 0 {
		t.Errorf("ValidateAll() on valid matrix = %v", errs)
	}

	m := codec.Matrix{{0.5, 1.0}, {math.NaN(), 1.4}}
	errs := ValidateAll(m, def)
	if len(errs) != 3 {
		t.Fatalf("ValidateAll() returned %d errors, want 3", len(errs))
	}
	for _, err := range errs {
		if !ecuerr.IsOutOfRange(err) {
			t.Errorf("unexpected error type %T", err)
		}
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if got := FormatValidationErrors(nil); got != "No validation errors" {
		t.Errorf("FormatValidationErrors(nil) = %q", got)
	}

	errs := ValidateAll(codec.Matrix{{0.5, 1.0}, {1.0, 1.4}}, fuelDef())
	got := FormatValidationErrors(errs)
	if !strings.Contains(got, "2 error(s)") {
		t.Errorf("missing count in %q", got)
	}
	if !strings.Contains(got, "1. Fuel Map: unsafe value 0.5 at [0,0]") {
		t.Errorf("missing first entry in %q", got)
	}
	if !strings.Contains(got, "2. Fuel Map: unsafe value 1.4 at [1,1]") {
		t.Errorf("missing second entry in %q", got)
	}
}

func TestValidateStoredValue(t *testing.T) {
	// Bounds off the 0.01 grid, as a user profile file may declare them.
	def := profile.MapDefinition{Name: "Lambda", Rows: 1, Cols: 1, Factor: 0.01, Min: 0.704, Max: 1.305}

	tests := []struct {
		name   string
		value  float64
		stored float64
		ok     bool
	}{
		{"rounds up past max", 1.305, 1.31, false},
		{"rounds down below min", 0.704, 0.70, false},
		{"rounds onto max grid point", 1.304, 1.30, true},
		{"rounds up into range", 0.705, 0.71, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(codec.Matrix{{tt.value}}, def)
			if tt.ok {
				if err != nil {
					t.Errorf("Validate(%g) error = %v", tt.value, err)
				}
				return
			}
			var rangeErr *ecuerr.OutOfRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("Validate(%g) error = %v, want OutOfRangeError", tt.value, err)
			}
			if !rangeErr.Rounded || math.Abs(rangeErr.Stored-tt.stored) > 1e-9 || rangeErr.Value != tt.value {
				t.Errorf("error = %+v, want value %g stored as %g", rangeErr, tt.value, tt.stored)
			}
			if !strings.Contains(err.Error(), "would be stored as") {
				t.Errorf("Error() = %q", err.Error())
			}
			if len(ValidateAll(codec.Matrix{{tt.value}}, def)) != 1 {
				t.Error("ValidateAll() should report the rounded violation too")
			}
		})
	}
}
