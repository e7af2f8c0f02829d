package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jtagvpi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "host: sim.local\nport: 5555\ntimeout_ms: 1500\nretries: 10\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "sim.local" || cfg.Port != 5555 || cfg.Retries != 10 {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Timeout() != 1500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 1.5s", cfg.Timeout())
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "port: 4444\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.Port != 4444 {
		t.Errorf("Port = %d, want 4444", cfg.Port)
	}
	if cfg.Host != def.Host || cfg.TimeoutMS != def.TimeoutMS || cfg.Retries != def.Retries {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "port: [\n"},
		{"port out of range", "port: 70000\n"},
		{"negative timeout", "timeout_ms: -1\n"},
		{"zero retries", "retries: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() succeeded, want error")
	}
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
