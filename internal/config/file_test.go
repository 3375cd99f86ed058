package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "ecu-editor") {
		t.Errorf("GetConfigDir() = %v, should contain 'ecu-editor'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	default:
		if configDir != filepath.Join("/tmp/xdg-test", "ecu-editor") {
			t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME based path", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("NewConfig().Version = %v, want 1", cfg.Version)
	}
	if !cfg.Preferences.Backups {
		t.Error("backups should be on by default")
	}
	if cfg.Preferences.DisplayMode != DisplayHeatmap {
		t.Errorf("DisplayMode = %q, want heatmap", cfg.Preferences.DisplayMode)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Advertise {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Error("missing file should yield a default config")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Preferences.DefaultProfile = "M73"
	cfg.Preferences.ProfileFiles = []string{"/opt/profiles.yaml"}
	cfg.Server.Advertise = true
	cfg.RecordChecksum("/images/stock.bin", "M73", 0xDEADBEEF)

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "# ECU Editor Configuration File") {
		t.Error("saved file should start with the header comment")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Preferences.DefaultProfile != "M73" || !loaded.Server.Advertise {
		t.Errorf("loaded = %+v %+v", loaded.Preferences, loaded.Server)
	}
	if len(loaded.Preferences.ProfileFiles) != 1 {
		t.Errorf("ProfileFiles = %v", loaded.Preferences.ProfileFiles)
	}
	meta := loaded.Images["/images/stock.bin"]
	if meta == nil || meta.Profile != "M73" || meta.LastChecksum != 0xDEADBEEF {
		t.Errorf("image meta = %+v", meta)
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Preferences == nil || cfg.Server == nil || cfg.Images == nil {
		t.Fatal("missing sections should be filled with defaults")
	}
	if cfg.Preferences.DisplayMode != DisplayHeatmap {
		t.Errorf("DisplayMode = %q", cfg.Preferences.DisplayMode)
	}
}

func TestLoadFromBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should reject an unknown version")
	}
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.Preferences.DisplayMode = "sparkles"
	cfg.Server.Port = 0
	cfg.Server.Host = ""

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}

func TestResolveProfile(t *testing.T) {
	cfg := NewConfig()
	cfg.Preferences.DefaultProfile = "Janvar 7.2+"
	cfg.RememberImage("/a.bin", "M73")

	tests := []struct {
		flag, path, want string
	}{
		{"M73", "/b.bin", "M73"},
		{"", "/a.bin", "M73"},
		{"", "/b.bin", "Janvar 7.2+"},
		{"Janvar 7.2+", "/a.bin", "Janvar 7.2+"},
	}
	for _, tt := range tests {
		if got := cfg.ResolveProfile(tt.flag, tt.path); got != tt.want {
			t.Errorf("ResolveProfile(%q, %q) = %q, want %q", tt.flag, tt.path, got, tt.want)
		}
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := CreateDefaultConfig(path)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if cfg.Preferences.DefaultProfile == "" {
		t.Error("default config should name a default profile")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}
