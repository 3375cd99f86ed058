package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanya94592-stack/ecu-editor/internal/config"
	"github.com/sanya94592-stack/ecu-editor/internal/ui"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration file and its settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Replace an existing configuration file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		ui.PrintFailure(os.Stdout, "Cannot read configuration", err)
		return err
	}

	exists := "no (defaults in use)"
	if _, err := os.Stat(path); err == nil {
		exists = "yes"
	}
	defaultProfile := cfg.Preferences.DefaultProfile
	if defaultProfile == "" {
		defaultProfile = "(match by image size)"
	}

	details := []ui.Param{
		{Key: "File", Value: path},
		{Key: "Exists", Value: exists},
		{Key: "Default profile", Value: defaultProfile},
		{Key: "Backups", Value: fmt.Sprintf("%t", cfg.Preferences.Backups)},
		{Key: "Display", Value: cfg.Preferences.DisplayMode},
		{Key: "Profile files", Value: strings.Join(cfg.Preferences.ProfileFiles, ", ")},
		{Key: "Server", Value: fmt.Sprintf("%s:%d (advertise: %t)", cfg.Server.Host, cfg.Server.Port, cfg.Server.Advertise)},
		{Key: "Known images", Value: fmt.Sprintf("%d", len(cfg.Images))},
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			details = append(details, ui.Param{Key: "Problem", Value: e.Error()})
		}
		ui.PrintWarning(os.Stdout, "Configuration has problems", details...)
		return errors.Join(errs...)
	}
	ui.PrintSuccess(os.Stdout, "Configuration", details...)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to replace it)", path)
	}

	cfg, err := config.CreateDefaultConfig(path)
	if err != nil {
		ui.PrintFailure(os.Stdout, "Cannot write configuration", err)
		return err
	}
	ui.PrintSuccess(os.Stdout, "Configuration written",
		ui.Param{Key: "File", Value: path},
		ui.Param{Key: "Default profile", Value: cfg.Preferences.DefaultProfile},
	)
	return nil
}
