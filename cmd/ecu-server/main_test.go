package main

import (
	"testing"

	"github.com/sanya94592-stack/ecu-editor/internal/config"
)

func TestApplyConfigDefaults(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9100
	cfg.Server.Advertise = true

	defer func() { host, port, advertise = "", 0, false }()

	if err := serveCmd.Flags().Parse([]string{"--port", "8443"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	applyConfigDefaults(serveCmd, cfg)

	if host != "0.0.0.0" || !advertise {
		t.Errorf("unset flags not filled from config: host %q, advertise %v", host, advertise)
	}
	if port != 8443 {
		t.Errorf("port = %d, want the flag value 8443", port)
	}
}
