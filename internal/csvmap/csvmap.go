package csvmap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// HeaderLabel is the first cell of the column header row.
const HeaderLabel = `Row\Col`

// Decimals returns the number of fractional digits needed to print exact
// multiples of factor.
func Decimals(factor float64) int {
	for d := 0; d < 9; d++ {
		scaled := factor * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 9
}

// FileName returns the default export name for a map, e.g. "fuel_map.csv".
func FileName(def profile.MapDefinition) string {
	name := strings.ToLower(strings.TrimSpace(def.Name))
	name = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "+", "").Replace(name)
	return name + ".csv"
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Write exports m as CSV: "#" metadata lines, a header row of column
// indices, then one row per map row labelled with its index.
func Write(w io.Writer, m *codec.CalibrationMap) error {
	def := m.Def

	meta := []string{
		"# " + oneLine(def.Name),
		fmt.Sprintf("# Offset: 0x%X", def.Offset),
		fmt.Sprintf("# Size: %dx%d", def.Rows, def.Cols),
		fmt.Sprintf("# Factor: %g", def.Factor),
		fmt.Sprintf("# Range: %g..%g", def.Min, def.Max),
	}
	if def.Unit != "" {
		meta = append(meta, "# Unit: "+oneLine(def.Unit))
	}
	for _, line := range meta {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(w)

	header := []string{HeaderLabel}
	for x := 0; x < def.Cols; x++ {
		header = append(header, strconv.Itoa(x))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	prec := Decimals(def.Factor)
	for y, row := range m.Values {
		record := []string{strconv.Itoa(y)}
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'f', prec, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.TrimSpace(record[0])
	return first == HeaderLabel || strings.Contains(first, `\`)
}

// Read parses CSV produced by Write (or edited by hand) into a matrix shaped
// for def. Metadata lines and the header row are optional. Non-numeric cells
// are reported as ecuerr.ParseError with their line; a grid of the wrong
// size is an ecuerr.ShapeError. Values are not range-checked here.
func Read(r io.Reader, def profile.MapDefinition) (codec.Matrix, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var m codec.Matrix
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ecuerr.ParseError{Row: len(m), Line: perr.Line, Err: perr.Err}
			}
			return nil, err
		}

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		y := len(m)
		row := make([]float64, 0, len(record)-1)
		for i, field := range record[1:] {
			text := strings.TrimSpace(field)
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				line, _ := reader.FieldPos(i + 1)
				return nil, &ecuerr.ParseError{Row: y, Col: i, Line: line, Text: text, Err: unwrapNum(err)}
			}
			row = append(row, v)
		}
		m = append(m, row)
	}

	if err := codec.CheckShape(m, def); err != nil {
		return nil, err
	}
	return m, nil
}

// unwrapNum strips strconv's "strconv.ParseFloat: parsing ..." prefix.
func unwrapNum(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}

// WriteFile exports m to path.
func WriteFile(path string, m *codec.CalibrationMap) error {
	f, err := os.Create(path)
	if err != nil {
		return &ecuerr.IOError{Op: "create", Path: path, Err: err}
	}
	return writeAndClose(f, path, m)
}

// writeAndClose writes m to w and closes it. A failed close is an export
// failure.
func writeAndClose(w io.WriteCloser, path string, m *codec.CalibrationMap) error {
	if err := Write(w, m); err != nil {
		w.Close()
		return &ecuerr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := w.Close(); err != nil {
		return &ecuerr.IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

// ReadFile imports a matrix for def from path.
func ReadFile(path string, def profile.MapDefinition) (codec.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ecuerr.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	return Read(f, def)
}

// ParseCell parses a single cell typed by a user. It is the same rule Read
// applies to file input.
func ParseCell(text string, row, col int) (float64, error) {
	text = strings.TrimSpace(text)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ecuerr.ParseError{Row: row, Col: col, Text: text, Err: unwrapNum(err)}
	}
	return v, nil
}
