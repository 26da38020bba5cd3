// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/pflag"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/lib/config"
	"github.com/bureau-foundation/atproto/lib/sessionstore"
)

// ClientFlags are the flags shared by every command that talks to a
// PDS. Embed it in a parameter struct; it binds itself (FlagBinder).
type ClientFlags struct {
	ConfigFile  string
	Service     string
	SessionFile string
	LogLevel    string
}

// AddFlags registers --config, --service, --session-file, and
// --log-level.
func (f *ClientFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ConfigFile, "config", "", "YAML config file (default: $BSKY_CONFIG)")
	flagSet.StringVar(&f.Service, "service", "", "PDS base URL (overrides config)")
	flagSet.StringVar(&f.SessionFile, "session-file", "", "session file path (overrides config)")
	flagSet.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn, or error (overrides config)")
}

// Config loads the configuration and applies the flag overrides.
func (f *ClientFlags) Config() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, Validation("%w", err)
	}
	if f.Service != "" {
		cfg.Service = f.Service
	}
	if f.SessionFile != "" {
		cfg.SessionFile = f.SessionFile
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SessionRequirement says whether Connect fails without a saved
// session.
type SessionRequirement int

const (
	// SessionOptional connects anonymously when no session is saved.
	SessionOptional SessionRequirement = iota
	// SessionRequired fails with an auth error when no session is
	// saved for the configured service.
	SessionRequired
)

// Connection is a client wired to the configured service and session
// file. Call Close when done so a session rotated by an automatic
// refresh is written back.
type Connection struct {
	Client *atproto.Client
	Store  *sessionstore.Store
	Config *config.Config
	Logger *slog.Logger

	saved          atproto.Session
	tracerProvider *sdktrace.TracerProvider
}

// Connect builds a client from the configuration and resumes the saved
// session if there is one for the configured service. With AutoRefresh
// configured, a session whose access token has already expired is
// refreshed up front.
func (f *ClientFlags) Connect(ctx context.Context, requirement SessionRequirement) (*Connection, error) {
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}
	logger := NewCommandLogger(cfg.SlogLevel())

	var tracerProvider *sdktrace.TracerProvider
	if cfg.TraceEndpoint != "" {
		if tracerProvider, err = startTracing(ctx, cfg.TraceEndpoint); err != nil {
			return nil, Validation("trace_endpoint: %w", err)
		}
	}
	connection, err := connect(ctx, cfg, logger, tracerProvider, requirement)
	if err != nil {
		stopTracing(tracerProvider, logger)
		return nil, err
	}
	return connection, nil
}

func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, tracerProvider *sdktrace.TracerProvider, requirement SessionRequirement) (*Connection, error) {
	clientConfig := atproto.ClientConfig{
		Service:     cfg.Service,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		Logger:      logger,
		UserAgent:   cfg.UserAgent,
		AutoRefresh: cfg.AutoRefresh,
	}
	if tracerProvider != nil {
		clientConfig.TracerProvider = tracerProvider
	}
	client, err := atproto.NewClient(clientConfig)
	if err != nil {
		return nil, Validation("%w", err)
	}
	store := sessionstore.New(cfg.SessionFile)
	if cfg.SessionIdentityFile != "" {
		identity, err := sessionstore.LoadOrCreateIdentity(cfg.SessionIdentityFile)
		if err != nil {
			return nil, Internal("%w", err)
		}
		store = sessionstore.NewEncrypted(cfg.SessionFile, identity)
	}
	connection := &Connection{
		Client:         client,
		Store:          store,
		Config:         cfg,
		Logger:         logger,
		tracerProvider: tracerProvider,
	}

	entry, err := connection.Store.Load()
	switch {
	case errors.Is(err, sessionstore.ErrNoSession):
		if requirement == SessionRequired {
			return nil, Classify(err)
		}
		return connection, nil
	case err != nil:
		return nil, Internal("%w", err)
	}

	if entry.Service != client.Service() {
		if requirement == SessionRequired {
			return nil, &ToolError{
				Category: CategoryAuth,
				Err:      errors.New("the saved session is for " + entry.Service + ", not " + client.Service()),
			}
		}
		logger.Debug("ignoring session saved for another service",
			"saved_service", entry.Service,
			"service", client.Service(),
		)
		return connection, nil
	}

	if err := client.ResumeSession(entry.Session); err != nil {
		return nil, Internal("%w", err)
	}
	connection.saved = entry.Session

	if cfg.AutoRefresh && client.AccessExpired() {
		if _, err := client.RefreshSession(ctx); err != nil {
			return nil, Classify(err)
		}
		if err := connection.persist(); err != nil {
			return nil, err
		}
	}
	return connection, nil
}

// Save writes the client's current session to the session file.
func (c *Connection) Save() error {
	session, ok := c.Client.Session()
	if !ok {
		return Internal("no session to save")
	}
	if err := c.Store.Save(sessionstore.Entry{Service: c.Client.Service(), Session: session}); err != nil {
		return Internal("%w", err)
	}
	c.saved = session
	return nil
}

// Close persists the session if it changed since it was loaded, and
// flushes any recorded trace spans.
func (c *Connection) Close() error {
	err := c.persist()
	stopTracing(c.tracerProvider, c.Logger)
	c.tracerProvider = nil
	return err
}

func (c *Connection) persist() error {
	session, ok := c.Client.Session()
	if !ok || session == c.saved {
		return nil
	}
	return c.Save()
}

// Me returns the scoped handle for the logged-in account.
func (c *Connection) Me() (*atproto.Me, error) {
	me, err := c.Client.Me()
	if err != nil {
		return nil, Classify(err)
	}
	return me, nil
}
