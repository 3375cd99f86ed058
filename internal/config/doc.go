// Package config provides user configuration management for the ECU editor.
//
// This package manages a YAML configuration file holding application
// preferences (default profile, backup behaviour, display mode, extra profile
// catalogs), ecu-server defaults, and the profile last used for each image.
// The configuration follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/ecu-editor/config.yaml or $HOME/.config/ecu-editor/config.yaml
//   - macOS: $HOME/.config/ecu-editor/config.yaml
//   - Windows: %LOCALAPPDATA%\ecu-editor\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
//	name := cfg.ResolveProfile(flagProfile, imagePath)
//	cfg.RememberImage(imagePath, name)
//	if err := cfg.Save(); err != nil {
//	    return err
//	}
//
// # File Format
//
//	version: 1
//	preferences:
//	  default_profile: Janvar 7.2+
//	  backups: true
//	  display_mode: heatmap
//	  profile_files:
//	    - /home/me/ecu/bench-profiles.yaml
//	server:
//	  host: 127.0.0.1
//	  port: 8080
//	  advertise: false
//	images:
//	  /home/me/ecu/stock.bin:
//	    profile: Janvar 7.2+
//
// # Thread Safety
//
// File operations are serialized with a package mutex. The atomic write
// (temporary file plus rename) keeps the file intact if the process dies
// mid-save.
package config
