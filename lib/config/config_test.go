// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnvironment unsets every variable the loader reads so the host
// environment cannot leak into a test.
func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"BSKY_CONFIG", "BSKY_SERVICE", "BSKY_TIMEOUT",
		"BSKY_SESSION_FILE", "BSKY_SESSION_IDENTITY_FILE", "BSKY_LOG_LEVEL",
		"BSKY_AUTO_REFRESH", "BSKY_TRACE_ENDPOINT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	cfg := Default()

	if cfg.Service != DefaultService {
		t.Errorf("expected service=%s, got %s", DefaultService, cfg.Service)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected timeout=30s, got %s", cfg.Timeout)
	}
	if cfg.SessionFile != "/xdg/bsky/session.cbor" {
		t.Errorf("expected session file under XDG_CONFIG_HOME, got %s", cfg.SessionFile)
	}
	if cfg.AutoRefresh {
		t.Error("expected auto_refresh=false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnvironment(t)
	t.Setenv("HOME", "/home/alice")
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionFile != "/home/alice/.config/bsky/session.cbor" {
		t.Errorf("session file not expanded: %s", cfg.SessionFile)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnvironment(t)
	t.Setenv("HOME", "/home/alice")

	configPath := filepath.Join(t.TempDir(), "bsky.yaml")
	content := `
service: https://pds.example.com
timeout: 5s
session_file: ${HOME}/sessions/main.cbor
log_level: debug
auto_refresh: true
user_agent: custom/1.0
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Service != "https://pds.example.com" {
		t.Errorf("service = %s", cfg.Service)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.SessionFile != "/home/alice/sessions/main.cbor" {
		t.Errorf("session_file = %s", cfg.SessionFile)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %s", cfg.SlogLevel())
	}
	if !cfg.AutoRefresh {
		t.Error("auto_refresh not applied")
	}
	if cfg.UserAgent != "custom/1.0" {
		t.Errorf("user_agent = %s", cfg.UserAgent)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnvironment(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: loading") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_UsesBskyConfig(t *testing.T) {
	clearEnvironment(t)
	configPath := filepath.Join(t.TempDir(), "bsky.yaml")
	if err := os.WriteFile(configPath, []byte("service: https://env-selected.example\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BSKY_CONFIG", configPath)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service != "https://env-selected.example" {
		t.Errorf("service = %s", cfg.Service)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnvironment(t)

	configPath := filepath.Join(t.TempDir(), "bsky.yaml")
	content := "service: https://from-file.example\ntimeout: 5s\nlog_level: warn\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BSKY_SERVICE", "https://from-env.example")
	t.Setenv("BSKY_TIMEOUT", "2m")
	t.Setenv("BSKY_AUTO_REFRESH", "true")
	t.Setenv("BSKY_SESSION_IDENTITY_FILE", "${HOME}/.config/bsky/session.key")
	t.Setenv("BSKY_TRACE_ENDPOINT", "http://collector:4318/v1/traces")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Service != "https://from-env.example" {
		t.Errorf("env did not override service: %s", cfg.Service)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("env did not override timeout: %s", cfg.Timeout)
	}
	if !cfg.AutoRefresh {
		t.Error("env did not set auto_refresh")
	}
	if want := os.Getenv("HOME") + "/.config/bsky/session.key"; cfg.SessionIdentityFile != want {
		t.Errorf("session_identity_file = %s, want %s", cfg.SessionIdentityFile, want)
	}
	if cfg.TraceEndpoint != "http://collector:4318/v1/traces" {
		t.Errorf("env did not set trace_endpoint: %s", cfg.TraceEndpoint)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("unset env var clobbered file value: log_level=%s", cfg.LogLevel)
	}
}

func TestEnvironmentOverrides_Invalid(t *testing.T) {
	clearEnvironment(t)
	t.Setenv("BSKY_TIMEOUT", "soon")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for unparseable BSKY_TIMEOUT")
	}
	if !strings.Contains(err.Error(), "parse env") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("BSKY_TEST_DIR", "/data")
	t.Setenv("BSKY_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${BSKY_TEST_DIR}/session", "/data/session"},
		{"${BSKY_TEST_EMPTY:-/fallback}/session", "/fallback/session"},
		{"/plain/path", "/plain/path"},
	}
	for _, tt := range tests {
		if got := expandVars(tt.input); got != tt.want {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty service",
			modify:  func(c *Config) { c.Service = "" },
			wantErr: true,
		},
		{
			name:    "non-http service",
			modify:  func(c *Config) { c.Service = "ftp://pds.example" },
			wantErr: true,
		},
		{
			name:    "service without host",
			modify:  func(c *Config) { c.Service = "https://" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "empty session file",
			modify:  func(c *Config) { c.SessionFile = "" },
			wantErr: true,
		},
		{
			name: "identity file same as session file",
			modify: func(c *Config) {
				c.SessionFile = "/tmp/bsky/session.cbor"
				c.SessionIdentityFile = "/tmp/bsky/./session.cbor"
			},
			wantErr: true,
		},
		{
			name:    "separate identity file",
			modify:  func(c *Config) { c.SessionIdentityFile = "/tmp/bsky/session.key" },
			wantErr: false,
		},
		{
			name:    "trace endpoint",
			modify:  func(c *Config) { c.TraceEndpoint = "http://localhost:4318/v1/traces" },
			wantErr: false,
		},
		{
			name:    "trace endpoint without scheme",
			modify:  func(c *Config) { c.TraceEndpoint = "localhost:4318" },
			wantErr: true,
		},
		{
			name:    "upper-case log level",
			modify:  func(c *Config) { c.LogLevel = "DEBUG" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
