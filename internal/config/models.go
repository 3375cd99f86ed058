package config

import (
	"fmt"
	"time"
)

// CurrentVersion is the config file schema version.
const CurrentVersion = 1

// Display modes understood by the map renderer.
const (
	DisplayHeatmap = "heatmap"
	DisplayValues  = "values"
	DisplaySymbols = "symbols"
)

// Config represents the entire user configuration file.
type Config struct {
	Version     int                   `yaml:"version"`
	Preferences *Preferences          `yaml:"preferences,omitempty"`
	Server      *ServerPrefs          `yaml:"server,omitempty"`
	Images      map[string]*ImageMeta `yaml:"images,omitempty"` // Keyed by absolute image path
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultProfile string   `yaml:"default_profile,omitempty"` // Used when --profile is not given
	Backups        bool     `yaml:"backups"`                   // Back up an image before overwriting it
	DisplayMode    string   `yaml:"display_mode"`              // heatmap, values or symbols
	ProfileFiles   []string `yaml:"profile_files,omitempty"`   // Extra profile catalogs loaded at startup
}

// ServerPrefs holds defaults for ecu-server.
type ServerPrefs struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"` // Register the server over mDNS
}

// ImageMeta remembers which profile an image was last edited with.
type ImageMeta struct {
	Profile      string    `yaml:"profile"`
	LastOpened   time.Time `yaml:"last_opened,omitempty"`
	LastChecksum uint32    `yaml:"last_checksum,omitempty"`
	Note         string    `yaml:"note,omitempty"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		Preferences: defaultPreferences(),
		Server:      defaultServer(),
		Images:      make(map[string]*ImageMeta),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		Backups:     true,
		DisplayMode: DisplayHeatmap,
	}
}

func defaultServer() *ServerPrefs {
	return &ServerPrefs{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

// applyDefaults fills sections missing from a loaded file.
func (c *Config) applyDefaults() {
	if c.Preferences == nil {
		c.Preferences = defaultPreferences()
	}
	if c.Preferences.DisplayMode == "" {
		c.Preferences.DisplayMode = DisplayHeatmap
	}
	if c.Server == nil {
		c.Server = defaultServer()
	}
	if c.Images == nil {
		c.Images = make(map[string]*ImageMeta)
	}
}

// Validate checks the values a user may have edited by hand.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errors []error

	switch c.Preferences.DisplayMode {
	case DisplayHeatmap, DisplayValues, DisplaySymbols:
	default:
		errors = append(errors, fmt.Errorf("display_mode must be heatmap, values or symbols, got %q", c.Preferences.DisplayMode))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Host == "" {
		errors = append(errors, fmt.Errorf("server host cannot be empty"))
	}

	return errors
}

// ImageProfile returns the profile last used for path, or "".
func (c *Config) ImageProfile(path string) string {
	if meta, ok := c.Images[path]; ok {
		return meta.Profile
	}
	return ""
}

// RememberImage records that path was opened with profile.
func (c *Config) RememberImage(path, profile string) *ImageMeta {
	if c.Images == nil {
		c.Images = make(map[string]*ImageMeta)
	}

	meta, ok := c.Images[path]
	if !ok {
		meta = &ImageMeta{}
		c.Images[path] = meta
	}
	meta.Profile = profile
	meta.LastOpened = time.Now()
	return meta
}

// RecordChecksum stores the checksum written on the last save of path.
func (c *Config) RecordChecksum(path, profile string, sum uint32) {
	meta := c.RememberImage(path, profile)
	meta.LastChecksum = sum
}

// ResolveProfile picks the profile for an image: an explicit flag wins, then
// the profile remembered for the image, then the configured default.
func (c *Config) ResolveProfile(flag, path string) string {
	if flag != "" {
		return flag
	}
	if p := c.ImageProfile(path); p != "" {
		return p
	}
	return c.Preferences.DefaultProfile
}
