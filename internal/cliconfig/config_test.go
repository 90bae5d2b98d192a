package cliconfig

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "startstop" {
		t.Errorf("Name = %v, want startstop", cfg.Name)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %v, want %v", cfg.Addr, DefaultAddr)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.WebhookAttempts != 5 {
		t.Errorf("WebhookAttempts = %v, want 5", cfg.WebhookAttempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.StateDir = "/tmp/startstop"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "https webhook", mutate: func(c *Config) { c.WebhookURL = "https://ops.example.com/hook" }},
		{name: "missing name", mutate: func(c *Config) { c.Name = "" }, wantErr: true},
		{name: "missing addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
		{name: "webhook without scheme", mutate: func(c *Config) { c.WebhookURL = "ops.example.com/hook" }, wantErr: true},
		{name: "zero webhook attempts", mutate: func(c *Config) { c.WebhookAttempts = 0 }, wantErr: true},
		{name: "zero http timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, wantErr: true},
		{name: "negative shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = -time.Second }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.StateDir == "" || filepath.Base(cfg.StateDir) != ".startstop" {
		t.Errorf("StateDir = %v, want derived ~/.startstop", cfg.StateDir)
	}
}

func TestLogger_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := Logger(tt.level).GetLevel(); got != tt.want {
			t.Errorf("Logger(%q).GetLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	// Should return a path containing .startstop
	if path != "" && !strings.Contains(path, ".startstop") {
		t.Errorf("DefaultConfigPath() = %v, should contain .startstop", path)
	}
}
