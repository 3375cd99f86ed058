package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and prompts the user to type phrase to
// proceed. Returns true only if the typed line equals phrase.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	width := GetTerminalWidth()

	lines := []string{"", resultLooks[ResultWarning].banner(title), ""}
	for _, warning := range warnings {
		lines = append(lines, textStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	box := resultBox(width, WarningColor).Render(strings.Join(lines, "\n"))
	fmt.Fprintln(out, box)
	fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return false
	}

	fmt.Fprintln(out)
	if strings.TrimSpace(input) == phrase {
		return true
	}

	fmt.Fprintln(out, mutedStyle.Render("  Operation cancelled."))
	fmt.Fprintln(out)
	return false
}

// ConfirmOverwrite asks before an image file is replaced in place.
func ConfirmOverwrite(in io.Reader, out io.Writer, path string, backups bool) bool {
	warnings := []string{
		"This will overwrite " + path,
		"The checksum field will be recomputed",
	}
	if backups {
		warnings = append(warnings, "A timestamped backup is written next to the file first")
	} else {
		warnings = append(warnings, "Backups are disabled; the original bytes will be lost")
	}
	return Confirm(in, out, "OVERWRITE IMAGE", warnings, "yes")
}
