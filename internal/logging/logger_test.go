package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op when no level is configured")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	defer SetLogger(nil)

	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv() error = %v", err)
	}
	core := GetLogger().Core()
	if !core.Enabled(zapcore.WarnLevel) || core.Enabled(zapcore.InfoLevel) {
		t.Error("logger should be enabled at warn and above only")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetLoggerFallback(t *testing.T) {
	SetLogger(nil)
	if GetLogger() == nil {
		t.Fatal("GetLogger() should never return nil")
	}
	// helpers must be safe on the fallback logger
	LogPatch("Fuel Map", 0x60000, 512)
	LogChecksum("Janvar 7.2+", 0x1FFFC, 0)
	LogRawBytes("region", []byte{1, 2, 3})
	SetLogger(zap.NewNop())
}

func TestHexDumpTruncates(t *testing.T) {
	if got := hexDump(nil); got != "" {
		t.Errorf("hexDump(nil) = %q", got)
	}
	if got := hexDump([]byte{0xAB, 0x01}); got != "ab01" {
		t.Errorf("hexDump() = %q, want ab01", got)
	}
	long := make([]byte, 300)
	if got := hexDump(long); len(got) != 512+3 {
		t.Errorf("hexDump(300 bytes) length = %d, want 515", len(got))
	}
}
