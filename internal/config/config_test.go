package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("FITCOACH_TEST_KEY", "secret-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
listen:
  port: 9090
model:
  provider: gemini
  name: gemini-1.5-flash
  gemini:
    api_key: ${FITCOACH_TEST_KEY}
cache:
  ttl_sec: 60
log_level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Model.Gemini.APIKey != "secret-123" {
		t.Errorf("api_key = %q, want env-expanded value", cfg.Model.Gemini.APIKey)
	}
	if cfg.Cache.TTLSec != 60 {
		t.Errorf("ttl_sec = %d, want 60", cfg.Cache.TTLSec)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Model.Temperature != 0.7 {
		t.Errorf("temperature = %v, want default 0.7", cfg.Model.Temperature)
	}
	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("ttl_sec = %d, want default 3600", cfg.Cache.TTLSec)
	}
	if cfg.Agent.MaxSteps != 10 {
		t.Errorf("max_steps = %d, want default 10", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.MaxParseRetries != 5 {
		t.Errorf("max_parse_retries = %d, want default 5", cfg.Agent.MaxParseRetries)
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" Error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
