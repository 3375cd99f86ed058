// Ecu-server exposes an ECU map editing session over HTTP.
//
// Clients upload a firmware image, read and replace calibration maps as JSON,
// and download the checksummed result. Session changes are pushed to
// WebSocket subscribers, and the server can advertise itself over mDNS.
//
// Usage:
//
//	ecu-server serve [flags]
//	ecu-server discover
//
// See 'ecu-server serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/config"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/render"
	"github.com/sanya94592-stack/ecu-editor/internal/server"
	"github.com/sanya94592-stack/ecu-editor/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ecu-server",
	Short: "ECU map editor API server",
	Long: `An HTTP API around one ECU map editing session.

The API accepts a raw firmware image, serves its calibration maps as JSON,
applies bounded edits and returns the image with a repaired checksum.
Session events are streamed over a WebSocket at /api/events.

For command line editing use the separate 'ecu-edit' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	certPath     string
	keyPath      string
	host         string
	port         int
	advertise    bool
	instance     string
	logLevel     string
	profilesFile string
	scanTimeout  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the API server.

Host, port and mDNS advertisement default to the values in the ecu-editor
config file. TLS is enabled when both --cert and --key are given.`,
	Example: `  # Local only, plain HTTP
  ecu-server serve

  # Reachable on the LAN and discoverable with 'ecu-server discover'
  ecu-server serve --host 0.0.0.0 --advertise

  # HTTPS with your own certificate
  ecu-server serve --cert cert.pem --key key.pem --port 8443`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (optional)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file (optional)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (default from config; empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the server over mDNS (default from config)")
	serveCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default: derived from hostname)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&profilesFile, "profiles-file", "", "Extra YAML profile catalog")

	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", server.DefaultScanTimeout, "How long to listen for answers")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.NewConfig()
	}
	return cfg
}

// applyConfigDefaults fills serve flags the user did not set from the
// config file.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("host") {
		host = cfg.Server.Host
	}
	if !flags.Changed("port") {
		port = cfg.Server.Port
	}
	if !flags.Changed("advertise") {
		advertise = cfg.Server.Advertise
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate: Either both cert and key are provided, or neither
	if (certPath != "" && keyPath == "") || (certPath == "" && keyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	cmd.SilenceUsage = true

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	cfg := loadConfig()
	applyConfigDefaults(cmd, cfg)

	files := append([]string(nil), cfg.Preferences.ProfileFiles...)
	reg, err := profile.LoadRegistry(append(files, profilesFile)...)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Host:      host,
		Port:      port,
		CertPath:  certPath,
		KeyPath:   keyPath,
		Advertise: advertise,
		Instance:  instance,
		Registry:  reg,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logging.Error("Server stopped", zap.Error(err))
		return err
	}
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find ecu-server instances on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fmt.Printf("Listening for %s for %s...\n\n", server.ServiceType, scanTimeout)
		endpoints, err := server.Browse(cmd.Context(), scanTimeout)
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			fmt.Println("No servers found. Start one with 'ecu-server serve --advertise'.")
			return nil
		}

		fmt.Println(render.Header(fmt.Sprintf("Found %d server(s)", len(endpoints))))
		for _, ep := range endpoints {
			fmt.Printf("  %-30s %s  (version %s)\n", ep.Instance, ep.BaseURL(), ep.Metadata["version"])
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ecu-server " + version.Full())
	},
}
