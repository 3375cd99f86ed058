// Ecu-edit views and edits calibration maps inside ECU firmware images.
//
// It decodes the maps described by an ECU profile, renders them as heatmaps
// or value grids, imports and exports them as CSV, applies bounded edits and
// repairs the image checksum on every save. It never talks to an ECU.
//
// Usage:
//
//	ecu-edit [command] [flags]
//
// Running 'ecu-edit edit <image>' opens the interactive map editor.
// Set ECU_EDITOR_LOG_LEVEL=debug to see detailed logs on stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ecu-edit",
	Short: "ECU calibration map editor",
	Long: `View and edit calibration maps inside ECU firmware images.

Maps are located through ECU profiles (see 'ecu-edit profiles'). Every edit
is checked against the map's safety bounds before anything is written, and
the image checksum is recomputed whenever an image is saved.

The profile is taken from --profile, then from the profile last used with
the image, then from the configured default, and finally from the image
size when exactly one profile matches.`,
	Version:       version.Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless ECU_EDITOR_LOG_LEVEL is set
		if err := logging.InitializeFromEnv(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return nil
	},
	Example: `  # List known ECU profiles and their maps
  ecu-edit profiles
  ecu-edit maps "Janvar 7.2+"

  # Show a map as a heatmap
  ecu-edit show stock.bin --map "Fuel Map"

  # Round-trip a map through a spreadsheet
  ecu-edit export stock.bin --map "Fuel Map"
  ecu-edit import stock.bin fuel_map.csv --map "Fuel Map" -o tuned.bin

  # Edit interactively
  ecu-edit edit tuned.bin`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ecu-edit " + version.Full())
	},
}
