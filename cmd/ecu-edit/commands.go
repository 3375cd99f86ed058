package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/checksum"
	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/compare"
	"github.com/sanya94592-stack/ecu-editor/internal/config"
	"github.com/sanya94592-stack/ecu-editor/internal/csvmap"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/render"
	"github.com/sanya94592-stack/ecu-editor/internal/session"
	"github.com/sanya94592-stack/ecu-editor/internal/tui"
	"github.com/sanya94592-stack/ecu-editor/internal/ui"
	"github.com/sanya94592-stack/ecu-editor/internal/validation"
)

// Command flags
var (
	profileName  string
	profilesFile string
	outputPath   string
	noBackup     bool
	format       string
	assumeYes    bool

	mapName     string
	cellRow     int
	cellCol     int
	cellValue   float64
	scaleFactor float64
	fixChecksum bool
	showBytes   bool
)

func init() {
	// Common flags for all commands (persistent on root)
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "ECU profile name (see 'ecu-edit profiles')")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles-file", "", "Extra YAML profile catalog")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Write the result here instead of overwriting the input")
	rootCmd.PersistentFlags().BoolVar(&noBackup, "no-backup", false, "Do not back up an image before overwriting it")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Map display: heatmap, values or symbols (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Overwrite images without asking")

	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(mapsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(scaleCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(editCmd)
}

// loadConfig returns the user config, or defaults if it cannot be read.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logging.Warn("Using default configuration", zap.Error(err))
		return config.NewConfig()
	}
	return cfg
}

// saveConfig persists image metadata. Failures only cost the remembered
// profile, so they are logged and otherwise ignored.
func saveConfig(cfg *config.Config) {
	if err := cfg.Save(); err != nil {
		logging.Warn("Failed to save configuration", zap.Error(err))
	}
}

// loadRegistry builds the built-in catalog plus configured and flagged
// profile files.
func loadRegistry(cfg *config.Config) (*profile.Registry, error) {
	files := append([]string(nil), cfg.Preferences.ProfileFiles...)
	return profile.LoadRegistry(append(files, profilesFile)...)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// resolveProfile picks the profile for the image at path.
func resolveProfile(reg *profile.Registry, cfg *config.Config, path string) (*profile.ECUProfile, error) {
	if name := cfg.ResolveProfile(profileName, absPath(path)); name != "" {
		return reg.Lookup(name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ecuerr.IOError{Op: "stat", Path: path, Err: err}
	}
	matches := reg.MatchSize(int(info.Size()))
	if len(matches) == 1 {
		logging.Debug("Profile matched by size", zap.String("profile", matches[0].Name), zap.Int64("size", info.Size()))
		return matches[0], nil
	}
	return nil, &ecuerr.UnknownProfileError{
		Name:      fmt.Sprintf("<none given for %d-byte image>", info.Size()),
		Available: reg.Names(),
	}
}

// env is what every image command needs.
type env struct {
	cfg     *config.Config
	reg     *profile.Registry
	session *session.Session
	path    string
}

// openImage loads the config, the registry and the image at path.
func openImage(path string) (*env, error) {
	cfg := loadConfig()
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	p, err := resolveProfile(reg, cfg, path)
	if err != nil {
		return nil, err
	}

	s := session.New()
	if err := s.LoadFile(path, p); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, reg: reg, session: s, path: path}, nil
}

func (e *env) profile() *profile.ECUProfile {
	return e.session.Profile()
}

func (e *env) mode() render.Mode {
	if format != "" {
		return render.ParseMode(format)
	}
	return render.ParseMode(e.cfg.Preferences.DisplayMode)
}

// target returns where a modified image is written
func (e *env) target() string {
	if outputPath != "" {
		return outputPath
	}
	return e.path
}

// confirmTarget asks before overwriting the input image in place.
func (e *env) confirmTarget() error {
	if assumeYes || outputPath != "" && absPath(outputPath) != absPath(e.path) {
		return nil
	}
	if !ui.ConfirmOverwrite(os.Stdin, os.Stdout, e.target(), e.backups()) {
		return errors.New("cancelled by user")
	}
	return nil
}

func (e *env) backups() bool {
	return e.cfg.Preferences.Backups && !noBackup
}

// save backs up the target if enabled, writes the finalized image and
// remembers the profile and checksum for it. Returns the backup path, if any.
func (e *env) save() (string, error) {
	dest := e.target()

	var backup string
	if e.backups() {
		var err error
		if backup, err = session.Backup(dest); err != nil {
			return "", fmt.Errorf("backup failed, image not written: %w", err)
		}
	}

	if err := e.session.Save(dest); err != nil {
		return backup, err
	}

	e.cfg.RecordChecksum(absPath(dest), e.profile().Name, e.session.LastChecksum())
	saveConfig(e.cfg)
	return backup, nil
}

// saveDetails describes a completed save for a result box
func (e *env) saveDetails(backup string) []ui.Param {
	details := []ui.Param{
		{Key: "Written", Value: e.target()},
		{Key: "Checksum", Value: fmt.Sprintf("0x%08X", e.session.LastChecksum())},
	}
	if backup != "" {
		details = append(details, ui.Param{Key: "Backup", Value: backup})
	}
	return details
}

// selectedMaps returns the --map definition, or every map of the profile.
func (e *env) selectedMaps() ([]profile.MapDefinition, error) {
	if mapName == "" {
		return e.session.Maps(), nil
	}
	def, err := e.profile().Map(mapName)
	if err != nil {
		return nil, err
	}
	return []profile.MapDefinition{*def}, nil
}

// explain adds every rejected cell to a bounds error, so a CSV with several
// bad values can be fixed in one pass.
func explain(err error, m codec.Matrix, def profile.MapDefinition) error {
	if ecuerr.KindOf(err) != ecuerr.KindOutOfRange {
		return err
	}
	all := validation.ValidateAll(m, def)
	if len(all) < 2 {
		return err
	}
	return fmt.Errorf("%w\n%s", err, strings.TrimSpace(validation.FormatValidationErrors(all)))
}

func commandLine(cmd *cobra.Command, args []string) string {
	return strings.TrimSpace(cmd.CommandPath() + " " + strings.Join(args, " "))
}

// editImage runs a change through the step runner: load, change, save.
func editImage(cmd *cobra.Command, args []string, title string, change func(e *env) (string, error)) error {
	cmd.SilenceUsage = true

	e, err := openImage(args[0])
	if err != nil {
		ui.PrintFailure(os.Stdout, title+" failed", err)
		return err
	}
	if err := e.confirmTarget(); err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   title,
		Command: commandLine(cmd, args),
		Params: []ui.Param{
			{Key: "Image", Value: e.path},
			{Key: "Profile", Value: e.profile().Name},
			{Key: "Map", Value: mapName},
		},
		Steps: []string{"Validate and apply", "Save image"},
	})

	_, err = runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(1, ui.StepRunning, "")
		msg, err := change(e)
		if err != nil {
			onStep(1, ui.StepFailed, ecuerr.KindOf(err).String())
			return nil, err
		}
		onStep(1, ui.StepComplete, msg)

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		onStep(2, ui.StepRunning, "")
		backup, err := e.save()
		if err != nil {
			onStep(2, ui.StepFailed, "")
			return nil, err
		}
		onStep(2, ui.StepComplete, fmt.Sprintf("0x%08X", e.session.LastChecksum()))
		return e.saveDetails(backup), nil
	})
	return err
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List known ECU profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := loadRegistry(loadConfig())
		if err != nil {
			return err
		}
		table, err := render.ProfileTable(reg.List())
		if err != nil {
			return err
		}
		fmt.Println(render.Header("ECU Profiles"))
		fmt.Println(table)
		return nil
	},
}

var mapsCmd = &cobra.Command{
	Use:   "maps <profile>",
	Short: "List the maps defined by a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := loadRegistry(loadConfig())
		if err != nil {
			return err
		}
		p, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		table, err := render.MapTable(p)
		if err != nil {
			return err
		}
		fmt.Println(render.Header(p.String()))
		fmt.Println(table)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <image>",
	Short: "Display calibration maps",
	Long: `Decode and display the maps of an image.

Without --map every map of the profile is shown. The checksum of the image
is verified and reported after the maps.`,
	Example: `  ecu-edit show stock.bin
  ecu-edit show stock.bin --map "Fuel Map" --format values`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&mapName, "map", "m", "", "Only show this map")
}

func runShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	e, err := openImage(args[0])
	if err != nil {
		return err
	}
	defs, err := e.selectedMaps()
	if err != nil {
		return err
	}

	for _, def := range defs {
		cm, err := e.session.DecodeMap(def.Name)
		if err != nil {
			return err
		}
		render.PrintMap(os.Stdout, cm, e.mode())
		fmt.Println()
	}

	report, err := e.session.Verify()
	if err != nil {
		return err
	}
	fmt.Println(report.String())

	e.cfg.RememberImage(absPath(e.path), e.profile().Name)
	saveConfig(e.cfg)
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export <image>",
	Short: "Export maps to CSV files",
	Long: `Write maps as CSV files into the --output directory (default: current
directory). Files are named after the map.`,
	Example: `  ecu-edit export stock.bin --map "Fuel Map"
  ecu-edit export stock.bin -o ./maps`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&mapName, "map", "m", "", "Only export this map")
}

func runExport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	e, err := openImage(args[0])
	if err != nil {
		return err
	}
	defs, err := e.selectedMaps()
	if err != nil {
		return err
	}

	dir := outputPath
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ecuerr.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	var details []ui.Param
	for _, def := range defs {
		cm, err := e.session.DecodeMap(def.Name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, csvmap.FileName(def))
		if err := csvmap.WriteFile(path, cm); err != nil {
			ui.PrintFailure(os.Stdout, "Export failed", err)
			return err
		}
		details = append(details, ui.Param{Key: def.Name, Value: path})
	}

	ui.PrintSuccess(os.Stdout, fmt.Sprintf("Exported %d map(s)", len(defs)), details...)
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <image> <csv>",
	Short: "Import a map from a CSV file",
	Long: `Replace a map with the values of a CSV file and save the image with a
repaired checksum.

Every value is checked against the map's safety bounds first. If any value is
rejected nothing is written.`,
	Example: `  ecu-edit import stock.bin fuel_map.csv --map "Fuel Map" -o tuned.bin`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editImage(cmd, args, "Map Import", func(e *env) (string, error) {
			def, err := e.profile().Map(mapName)
			if err != nil {
				return "", err
			}
			m, err := csvmap.ReadFile(args[1], *def)
			if err != nil {
				return "", err
			}
			if err := e.session.ApplyEdit(def.Name, m); err != nil {
				return "", explain(err, m, *def)
			}
			return fmt.Sprintf("%d cells", def.Cells()), nil
		})
	},
}

func init() {
	importCmd.Flags().StringVarP(&mapName, "map", "m", "", "Map to replace")
	_ = importCmd.MarkFlagRequired("map")
}

var setCmd = &cobra.Command{
	Use:   "set <image>",
	Short: "Set a single map cell",
	Example: `  ecu-edit set stock.bin --map "Fuel Map" --row 3 --col 7 --value 1.05`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editImage(cmd, args, "Cell Edit", func(e *env) (string, error) {
			cm, err := e.session.DecodeMap(mapName)
			if err != nil {
				return "", err
			}
			if cellRow < 0 || cellRow >= cm.Def.Rows || cellCol < 0 || cellCol >= cm.Def.Cols {
				return "", fmt.Errorf("cell [%d,%d] is outside %s (%dx%d)",
					cellRow, cellCol, cm.Def.Name, cm.Def.Rows, cm.Def.Cols)
			}
			old := cm.Values[cellRow][cellCol]
			m := cm.Values.Clone()
			m[cellRow][cellCol] = cellValue
			if err := e.session.ApplyEdit(cm.Def.Name, m); err != nil {
				return "", err
			}
			return fmt.Sprintf("[%d,%d] %g -> %g", cellRow, cellCol, old, cellValue), nil
		})
	},
}

func init() {
	setCmd.Flags().StringVarP(&mapName, "map", "m", "", "Map to edit")
	setCmd.Flags().IntVar(&cellRow, "row", 0, "Row index (0-based)")
	setCmd.Flags().IntVar(&cellCol, "col", 0, "Column index (0-based)")
	setCmd.Flags().Float64Var(&cellValue, "value", 0, "New physical value")
	_ = setCmd.MarkFlagRequired("map")
	_ = setCmd.MarkFlagRequired("value")
}

var scaleCmd = &cobra.Command{
	Use:   "scale <image>",
	Short: "Multiply every cell of a map",
	Long: `Multiply every cell of a map by --factor. The whole map is rejected if
any scaled value leaves the safety bounds.`,
	Example: `  ecu-edit scale stock.bin --map "Fuel Map" --factor 1.03 -o rich.bin`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editImage(cmd, args, "Map Scale", func(e *env) (string, error) {
			cm, err := e.session.DecodeMap(mapName)
			if err != nil {
				return "", err
			}
			scaled := cm.Values.Scale(scaleFactor)
			if err := e.session.ApplyEdit(cm.Def.Name, scaled); err != nil {
				return "", explain(err, scaled, cm.Def)
			}
			lo, hi := scaled.MinMax()
			return fmt.Sprintf("x%g, now %g..%g", scaleFactor, lo, hi), nil
		})
	},
}

func init() {
	scaleCmd.Flags().StringVarP(&mapName, "map", "m", "", "Map to scale")
	scaleCmd.Flags().Float64Var(&scaleFactor, "factor", 1, "Multiplier applied to every cell")
	_ = scaleCmd.MarkFlagRequired("map")
	_ = scaleCmd.MarkFlagRequired("factor")
}

var checksumCmd = &cobra.Command{
	Use:   "checksum <image>",
	Short: "Verify or repair the image checksum",
	Long: `Compare the stored checksum with the sum of the image.

When a profile stores the checksum field inside the summed region (both
built-in profiles do) the stored value took part in its own sum and cannot
be recomputed. The command then reports the stored value, compares it with
the value the last ecu-edit save recorded, and exits successfully. --fix
writes a fresh checksum either way.`,
	Example: `  ecu-edit checksum tuned.bin
  ecu-edit checksum tuned.bin --fix`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksum,
}

func init() {
	checksumCmd.Flags().BoolVar(&fixChecksum, "fix", false, "Rewrite the checksum field (a plain re-patch when the field is inside the summed region)")
}

func runChecksum(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	e, err := openImage(args[0])
	if err != nil {
		ui.PrintFailure(os.Stdout, "Checksum check failed", err)
		return err
	}
	report, err := e.session.Verify()
	if err != nil {
		ui.PrintFailure(os.Stdout, "Checksum check failed", err)
		return err
	}

	details := []ui.Param{
		{Key: "Profile", Value: e.profile().Name},
		{Key: "Field", Value: fmt.Sprintf("0x%X", report.Addr)},
		{Key: "Stored", Value: fmt.Sprintf("0x%08X", report.Stored)},
	}
	if !report.Verifiable {
		return unverifiableChecksum(e, args[0], report, details)
	}

	details = append(details, ui.Param{Key: "Computed", Value: fmt.Sprintf("0x%08X", report.Computed)})
	if report.Valid() {
		ui.PrintSuccess(os.Stdout, "Checksum valid", details...)
		return nil
	}
	if !fixChecksum {
		ui.PrintWarning(os.Stdout, "Checksum mismatch", append(details,
			ui.Param{Key: "Fix", Value: "ecu-edit checksum " + args[0] + " --fix"})...)
		return fmt.Errorf("checksum mismatch: stored 0x%08X, computed 0x%08X", report.Stored, report.Computed)
	}
	return repatch(e, "Checksum repaired")
}

// unverifiableChecksum handles profiles whose checksum field is part of the
// summed region. The stored value summed itself when it was written, so the
// best available check is against the value the last save recorded.
func unverifiableChecksum(e *env, path string, report checksum.Report, details []ui.Param) error {
	details = append(details, ui.Param{Key: "Note", Value: "cannot verify: field inside summed region"})

	if meta, ok := e.cfg.Images[absPath(path)]; ok && meta.LastChecksum != 0 {
		match := "no"
		if meta.LastChecksum == report.Stored {
			match = "yes"
		}
		details = append(details,
			ui.Param{Key: "Last written", Value: fmt.Sprintf("0x%08X", meta.LastChecksum)},
			ui.Param{Key: "Unchanged", Value: match})
	}

	if !fixChecksum {
		ui.PrintWarning(os.Stdout, "Checksum not verifiable", details...)
		return nil
	}
	return repatch(e, "Checksum re-patched (value includes the previous field)")
}

// repatch finalizes and writes the image without any map change.
func repatch(e *env, title string) error {
	if err := e.confirmTarget(); err != nil {
		return err
	}
	backup, err := e.save()
	if err != nil {
		ui.PrintFailure(os.Stdout, "Checksum repair failed", err)
		return err
	}
	ui.PrintSuccess(os.Stdout, title, e.saveDetails(backup)...)
	return nil
}

var diffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Compare the maps of two images",
	Long: `Compare two images of the same profile map by map. The profile is
resolved from the first image. With --bytes the changed byte ranges of the
whole image are listed as well, labelled with the map they fall in.`,
	Example: `  ecu-edit diff stock.bin tuned.bin
  ecu-edit diff stock.bin tuned.bin --map "Fuel Map" --bytes`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&mapName, "map", "m", "", "Only compare this map")
	diffCmd.Flags().BoolVar(&showBytes, "bytes", false, "List changed byte ranges")
}

func runDiff(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	a, err := openImage(args[0])
	if err != nil {
		return err
	}
	b := session.New()
	if err := b.LoadFile(args[1], a.profile()); err != nil {
		return err
	}

	diffs, err := compare.Images(a.session.Bytes(), b.Bytes(), a.profile())
	if err != nil {
		return err
	}
	for _, d := range diffs {
		if mapName != "" && d.Def.Name != mapName {
			continue
		}
		fmt.Println(render.Diff(d))
	}

	if showBytes {
		ranges, err := compare.ByteRanges(a.session.Bytes(), b.Bytes(), a.profile())
		if err != nil {
			return err
		}
		table, err := render.RangeTable(ranges)
		if err != nil {
			return err
		}
		fmt.Println(render.Header("Changed bytes"))
		fmt.Println(table)
	}
	return nil
}

var editCmd = &cobra.Command{
	Use:   "edit <image>",
	Short: "Edit maps interactively",
	Long: `Open the interactive map editor.

Pick a map, move with the arrow keys, type a value with enter or nudge a
cell with + and -, then press a to apply. Applied edits can be undone with u.
Press s to save: the image is checksummed and written to --output, or back
to the input (after a backup unless --no-backup).`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	e, err := openImage(args[0])
	if err != nil {
		ui.PrintFailure(os.Stdout, "Cannot open image", err)
		return err
	}
	e.cfg.RememberImage(absPath(e.path), e.profile().Name)

	save := func(s *session.Session) (string, error) {
		if _, err := e.save(); err != nil {
			return "", err
		}
		return e.target(), nil
	}

	p := tea.NewProgram(tui.New(e.session, save), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("editor failed: %w", err)
	}

	if e.session.State() == session.StateSaved {
		ui.PrintSuccess(os.Stdout, "Image saved", e.saveDetails("")...)
	} else if len(e.session.History()) > 0 {
		ui.PrintWarning(os.Stdout, "Edits were not saved",
			ui.Param{Key: "Image", Value: e.path},
			ui.Param{Key: "Edits", Value: fmt.Sprintf("%d", len(e.session.History()))})
	}
	saveConfig(e.cfg)
	return nil
}
