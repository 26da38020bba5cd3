// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultService is the PDS entryway used when nothing else is configured.
const DefaultService = "https://bsky.social"

// Config is the client configuration.
type Config struct {
	// Service is the base URL of the PDS (scheme and host, no path).
	Service string `yaml:"service" env:"BSKY_SERVICE"`

	// Timeout bounds each XRPC round trip.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" env:"BSKY_TIMEOUT"`

	// SessionFile is where the CLI persists the session between
	// invocations.
	// Default: $XDG_CONFIG_HOME/bsky/session.cbor
	SessionFile string `yaml:"session_file" env:"BSKY_SESSION_FILE"`

	// SessionIdentityFile, when set, names an age X25519 key file and
	// the session file is stored encrypted to it. The key is generated
	// on first use.
	SessionIdentityFile string `yaml:"session_identity_file" env:"BSKY_SESSION_IDENTITY_FILE"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level" env:"BSKY_LOG_LEVEL"`

	// AutoRefresh enables a single refresh-and-retry when the server
	// reports an expired access token.
	AutoRefresh bool `yaml:"auto_refresh" env:"BSKY_AUTO_REFRESH"`

	// UserAgent overrides the User-Agent header. Empty means the
	// build's version string.
	UserAgent string `yaml:"user_agent"`

	// TraceEndpoint, when set, is an OTLP/HTTP traces URL (e.g.
	// "http://localhost:4318/v1/traces") that receives a span per XRPC
	// call.
	TraceEndpoint string `yaml:"trace_endpoint" env:"BSKY_TRACE_ENDPOINT"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Service:     DefaultService,
		Timeout:     30 * time.Second,
		SessionFile: defaultSessionFile(),
		LogLevel:    "info",
	}
}

// defaultSessionFile follows the XDG base directory convention.
func defaultSessionFile() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "bsky", "session.cbor")
	}
	return filepath.Join("${HOME}", ".config", "bsky", "session.cbor")
}

// Load builds the configuration from defaults, the file named by path
// (or by BSKY_CONFIG when path is empty), and environment overrides.
// With neither a path nor BSKY_CONFIG, no file is read.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BSKY_CONFIG")
	}
	if path == "" {
		cfg := Default()
		if err := cfg.applyEnvironment(); err != nil {
			return nil, err
		}
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. The file
// must exist. Environment overrides are applied on top of its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnvironment overlays BSKY_* variables. Unset variables leave the
// field untouched.
func (c *Config) applyEnvironment() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

func (c *Config) expandVariables() {
	c.SessionFile = expandVars(c.SessionFile)
	c.SessionIdentityFile = expandVars(c.SessionIdentityFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns from the
// process environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured log level. Unknown values map to
// info; Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	if level, ok := logLevels[strings.ToLower(c.LogLevel)]; ok {
		return level
	}
	return slog.LevelInfo
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Service == "" {
		errs = append(errs, fmt.Errorf("service is required"))
	} else if parsed, err := url.Parse(c.Service); err != nil {
		errs = append(errs, fmt.Errorf("service: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("service must be an http or https URL, got %q", c.Service))
	} else if parsed.Host == "" {
		errs = append(errs, fmt.Errorf("service %q has no host", c.Service))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}

	if c.SessionFile == "" {
		errs = append(errs, fmt.Errorf("session_file is required"))
	} else if c.SessionIdentityFile != "" && filepath.Clean(c.SessionIdentityFile) == filepath.Clean(c.SessionFile) {
		errs = append(errs, fmt.Errorf("session_identity_file must differ from session_file"))
	}

	if c.TraceEndpoint != "" {
		if parsed, err := url.Parse(c.TraceEndpoint); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("trace_endpoint must be an http or https URL, got %q", c.TraceEndpoint))
		}
	}

	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
