package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pterm/pterm"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/compare"
	"github.com/sanya94592-stack/ecu-editor/internal/csvmap"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
)

// Mode selects how map cells are drawn.
type Mode string

const (
	ModeHeatmap Mode = "heatmap"
	ModeValues  Mode = "values"
	ModeSymbols Mode = "symbols"
)

// ParseMode accepts a mode name; anything unknown falls back to heatmap.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeValues:
		return ModeValues
	case ModeSymbols:
		return ModeSymbols
	default:
		return ModeHeatmap
	}
}

// band maps v into [0, buckets) relative to lo..hi. A flat map lands in
// bucket -1.
func band(v, lo, hi float64, buckets int) int {
	if hi == lo {
		return -1
	}
	n := int((v - lo) / (hi - lo) * float64(buckets))
	if n >= buckets {
		n = buckets - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}

var heatStyles = []*pterm.Style{
	pterm.NewStyle(pterm.BgBlue, pterm.FgWhite),
	pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	pterm.NewStyle(pterm.BgGreen, pterm.FgBlack),
	pterm.NewStyle(pterm.BgYellow, pterm.FgBlack),
	pterm.NewStyle(pterm.BgRed, pterm.FgWhite),
}

var symbolColors = []pterm.Color{pterm.FgCyan, pterm.FgGreen, pterm.FgYellow, pterm.FgRed}

var symbols = []string{"░", "▒", "▓", "█"}

func heatCell(v, lo, hi float64) string {
	b := band(v, lo, hi, len(heatStyles))
	if b < 0 {
		return pterm.BgGray.Sprint("  ")
	}
	return heatStyles[b].Sprint("▄▄")
}

func symbolCell(v, lo, hi float64) string {
	b := band(v, lo, hi, len(symbols))
	if b < 0 {
		return pterm.FgGray.Sprint("··")
	}
	return symbolColors[b].Sprint(strings.Repeat(symbols[b], 2))
}

func valueCell(v, lo, hi float64, width, decimals int) string {
	text := fmt.Sprintf("%*.*f", width, decimals, v)
	b := band(v, lo, hi, len(symbolColors))
	if b < 0 {
		return pterm.FgGray.Sprint(text)
	}
	return symbolColors[b].Sprint(text)
}

// valueWidth returns the column width needed to print every cell.
func valueWidth(m codec.Matrix, prec int) int {
	w := 4
	for _, row := range m {
		for _, v := range row {
			if n := len(fmt.Sprintf("%.*f", prec, v)); n > w {
				w = n
			}
		}
	}
	return w
}

// MapGrid draws the cells of m as a grid with row and column indices.
func MapGrid(m *codec.CalibrationMap, mode Mode) string {
	lo, hi := m.Values.MinMax()
	prec := csvmap.Decimals(m.Def.Factor)

	cellWidth := 2
	if mode == ModeValues {
		cellWidth = valueWidth(m.Values, prec)
	}

	var b strings.Builder
	b.WriteString("     |")
	for x := 0; x < m.Values.Cols(); x++ {
		fmt.Fprintf(&b, " %*d", cellWidth, x)
	}
	b.WriteString("\n")
	b.WriteString("-----+" + strings.Repeat("-", m.Values.Cols()*(cellWidth+1)) + "\n")

	for y, row := range m.Values {
		fmt.Fprintf(&b, " %3d |", y)
		for _, v := range row {
			b.WriteString(" ")
			switch mode {
			case ModeValues:
				b.WriteString(valueCell(v, lo, hi, cellWidth, prec))
			case ModeSymbols:
				b.WriteString(symbolCell(v, lo, hi))
			default:
				b.WriteString(heatCell(v, lo, hi))
			}
		}
		b.WriteString("\n")
	}

	switch mode {
	case ModeHeatmap:
		b.WriteString("\n" + heatLegend())
	case ModeSymbols:
		b.WriteString("\n" + symbolLegend())
	}
	return b.String()
}

func heatLegend() string {
	labels := []string{"Very Low", "Low", "Medium", "High", "Very High"}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = heatStyles[i].Sprint("▄▄") + " " + l
	}
	return "Heatmap: " + strings.Join(parts, "  ")
}

func symbolLegend() string {
	labels := []string{"Low", "Med", "High", "Max"}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = symbolColors[i].Sprint(symbols[i]) + " " + l
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// MapTitle returns the box title for m.
func MapTitle(m *codec.CalibrationMap) string {
	lo, hi := m.Values.MinMax()
	title := fmt.Sprintf("%s | Offset: 0x%04X | %dx%d | Values: %g..%g | Safe: %g..%g",
		m.Def.Name, m.Def.Offset, m.Def.Rows, m.Def.Cols, lo, hi, m.Def.Min, m.Def.Max)
	if m.Def.Unit != "" {
		title += " " + m.Def.Unit
	}
	return title
}

// Map renders m in a titled box, preceded by its description when set.
func Map(m *codec.CalibrationMap, mode Mode) string {
	var b strings.Builder
	if m.Def.Description != "" {
		b.WriteString(pterm.Info.Sprintln(m.Def.Description))
	}
	b.WriteString(pterm.DefaultBox.WithTitle(MapTitle(m)).WithTitleTopLeft().Sprint(MapGrid(m, mode)))
	b.WriteString("\n")
	return b.String()
}

// PrintMap writes Map(m, mode) to w.
func PrintMap(w io.Writer, m *codec.CalibrationMap, mode Mode) {
	fmt.Fprint(w, Map(m, mode))
}

// Header renders a full-width section header.
func Header(text string) string {
	return pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgDarkGray)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightWhite)).
		Sprint(text)
}

func table(data [][]string) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// ProfileTable lists every profile in the registry.
func ProfileTable(profiles []*profile.ECUProfile) (string, error) {
	data := [][]string{{"Name", "Size", "Checksum", "Maps", "Description"}}
	for _, p := range profiles {
		data = append(data, []string{
			p.Name,
			fmt.Sprintf("%d", p.Size),
			fmt.Sprintf("0x%04X", p.ChecksumAddr),
			fmt.Sprintf("%d", len(p.Maps)),
			p.Description,
		})
	}
	return table(data)
}

// MapTable lists the maps of one profile.
func MapTable(p *profile.ECUProfile) (string, error) {
	data := [][]string{{"Name", "Offset", "Size", "Factor", "Range", "Unit", "Description"}}
	for _, d := range p.Maps {
		data = append(data, []string{
			d.Name,
			fmt.Sprintf("0x%04X", d.Offset),
			fmt.Sprintf("%dx%d", d.Rows, d.Cols),
			fmt.Sprintf("%g", d.Factor),
			fmt.Sprintf("%g..%g", d.Min, d.Max),
			d.Unit,
			d.Description,
		})
	}
	return table(data)
}

func diffCell(v, maxAbs float64) string {
	if v == 0 || maxAbs == 0 {
		return pterm.FgGray.Sprint("··")
	}
	n := v / maxAbs
	switch {
	case n < -0.5:
		return pterm.FgBlue.Sprint("▼▼")
	case n < -0.1:
		return pterm.FgCyan.Sprint("▼ ")
	case n > 0.5:
		return pterm.FgRed.Sprint("▲▲")
	case n > 0.1:
		return pterm.FgYellow.Sprint("▲ ")
	}
	return pterm.FgGray.Sprint("· ")
}

// DiffGrid draws the sign and size of every cell change in d.
func DiffGrid(d *compare.MapDiff) string {
	maxAbs := math.Max(math.Abs(d.MaxIncrease), math.Abs(d.MaxDecrease))

	var b strings.Builder
	b.WriteString("     |")
	for x := 0; x < d.Delta.Cols(); x++ {
		fmt.Fprintf(&b, " %2d", x)
	}
	b.WriteString("\n")
	b.WriteString("-----+" + strings.Repeat("-", d.Delta.Cols()*3) + "\n")
	for y, row := range d.Delta {
		fmt.Fprintf(&b, " %3d |", y)
		for _, v := range row {
			b.WriteString(" " + diffCell(v, maxAbs))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nLegend: ")
	b.WriteString(pterm.FgBlue.Sprint("▼▼") + " Large Decrease  ")
	b.WriteString(pterm.FgCyan.Sprint("▼ ") + " Small Decrease  ")
	b.WriteString(pterm.FgGray.Sprint("··") + " No Change  ")
	b.WriteString(pterm.FgYellow.Sprint("▲ ") + " Small Increase  ")
	b.WriteString(pterm.FgRed.Sprint("▲▲") + " Large Increase")
	return b.String()
}

// Diff renders the statistics and change grid of one map diff.
func Diff(d *compare.MapDiff) string {
	var b strings.Builder
	b.WriteString(pterm.DefaultSection.Sprint(d.Def.Name))
	if d.Identical() {
		b.WriteString(pterm.Success.Sprintln("Maps are identical"))
		return b.String()
	}

	unit := d.Def.Unit
	b.WriteString(pterm.Info.Sprintf("Changed cells: %d / %d (%.1f%%)\n", d.Changed, d.Total, d.ChangedPercent()))
	b.WriteString(pterm.Info.Sprintf("Average change: %.4g %s\n", d.MeanChange, unit))
	b.WriteString(pterm.Info.Sprintf("Max increase: %.4g %s\n", d.MaxIncrease, unit))
	b.WriteString(pterm.Info.Sprintf("Max decrease: %.4g %s\n", d.MaxDecrease, unit))
	b.WriteString(pterm.DefaultBox.WithTitle("Difference (B - A)").Sprint(DiffGrid(d)))
	b.WriteString("\n")
	return b.String()
}

// RangeTable lists changed byte ranges.
func RangeTable(ranges []compare.Range) (string, error) {
	data := [][]string{{"Offset", "Length", "Region"}}
	for _, r := range ranges {
		region := r.Region
		if region == "" {
			region = "-"
		}
		data = append(data, []string{
			fmt.Sprintf("0x%04X", r.Offset),
			fmt.Sprintf("%d", r.Length),
			region,
		})
	}
	return table(data)
}
