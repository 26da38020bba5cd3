// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/bureau-foundation/atproto/lib/clock"
	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/xrpc"
)

// XRPC method names used by the session lifecycle.
const (
	methodCreateSession  = "com.atproto.server.createSession"
	methodRefreshSession = "com.atproto.server.refreshSession"
	methodDeleteSession  = "com.atproto.server.deleteSession"
	methodGetSession     = "com.atproto.server.getSession"
)

// ClientConfig holds the parameters for creating a Client.
type ClientConfig struct {
	// Service is the base URL of the PDS (e.g. "https://bsky.social").
	Service string

	// HTTPClient is the HTTP client used for requests. If nil, a client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Logger is used for operational logging. If nil, slog.Default().
	Logger *slog.Logger

	// Clock supplies the current time for expiry checks and record
	// timestamps. If nil, the system clock.
	Clock clock.Clock

	// TracerProvider supplies the tracer for XRPC call spans.
	TracerProvider trace.TracerProvider

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// AutoRefresh makes an authorized call that fails with
	// ExpiredToken refresh the session once and retry once.
	AutoRefresh bool
}

// Client is a PDS client holding at most one session.
//
// A Client is not safe for concurrent use.
type Client struct {
	xrpc        *xrpc.Client
	session     *Session
	logger      *slog.Logger
	clock       clock.Clock
	autoRefresh bool
}

// NewClient creates a Client with no session. No network I/O is
// performed.
func NewClient(config ClientConfig) (*Client, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	dispatcher, err := xrpc.NewClient(xrpc.Config{
		Host:           config.Service,
		HTTPClient:     config.HTTPClient,
		Logger:         logger,
		TracerProvider: config.TracerProvider,
		UserAgent:      config.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("atproto: %w", err)
	}

	return &Client{
		xrpc:        dispatcher,
		logger:      logger,
		clock:       clk,
		autoRefresh: config.AutoRefresh,
	}, nil
}

// Service returns the PDS base URL.
func (c *Client) Service() string {
	return c.xrpc.Host()
}

// Login authenticates with a handle, DID, or email and a password (or
// app password), and installs the resulting session, replacing any
// previous one. On failure the previous session is kept.
func (c *Client) Login(ctx context.Context, identifier, password string) (Session, error) {
	if identifier == "" {
		return Session{}, fmt.Errorf("atproto: login: identifier is required")
	}
	input := map[string]string{
		"identifier": identifier,
		"password":   password,
	}
	output, err := xrpc.Procedure[sessionOutput](ctx, c.xrpc, methodCreateSession, input, "")
	if err != nil {
		return Session{}, fmt.Errorf("atproto: login: %w", err)
	}
	session := output.session()
	if err := session.Validate(); err != nil {
		return Session{}, fmt.Errorf("atproto: login: server returned an incomplete %w", err)
	}

	c.session = &session
	c.logger.Info("logged in",
		"did", session.DID,
		"handle", session.Handle,
		"service", c.Service(),
	)
	return session, nil
}

// ResumeSession installs a previously obtained session, for example one
// loaded from disk. No network I/O is performed; the tokens may be
// expired, which the first authorized call (or AccessExpired) reveals.
func (c *Client) ResumeSession(session Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("atproto: resume session: %w", err)
	}
	c.session = &session
	return nil
}

// RefreshSession exchanges the refresh token for a new session and
// installs it. On failure the current session is kept unchanged.
func (c *Client) RefreshSession(ctx context.Context) (Session, error) {
	if c.session == nil {
		return Session{}, ErrMissingSession
	}
	output, err := xrpc.Procedure[sessionOutput](ctx, c.xrpc, methodRefreshSession, nil, c.session.RefreshJwt)
	if err != nil {
		return Session{}, fmt.Errorf("atproto: refresh session: %w", err)
	}
	session := output.session()
	if err := session.Validate(); err != nil {
		return Session{}, fmt.Errorf("atproto: refresh session: server returned an incomplete %w", err)
	}

	c.session = &session
	c.logger.Info("session refreshed", "did", session.DID)
	return session, nil
}

// Logout revokes the session on the server and clears it locally. The
// local session is cleared even when the server call fails; that
// failure is still returned.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		return ErrMissingSession
	}
	refreshToken := c.session.RefreshJwt
	did := c.session.DID
	c.session = nil

	if err := xrpc.ProcedureNoContent(ctx, c.xrpc, methodDeleteSession, nil, refreshToken); err != nil {
		return fmt.Errorf("atproto: logout: %w", err)
	}
	c.logger.Info("logged out", "did", did)
	return nil
}

// ClearSession drops the session locally without contacting the server.
func (c *Client) ClearSession() {
	c.session = nil
}

// Session returns a copy of the current session and whether one is held.
func (c *Client) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// CurrentActor returns the DID of the logged-in account.
func (c *Client) CurrentActor() (syntax.DID, error) {
	if c.session == nil {
		return syntax.DID{}, ErrMissingSession
	}
	return c.session.DID, nil
}

// AccessExpired reports whether the held access token's expiry has
// passed according to the client's clock. It returns false when no
// session is held or the token carries no readable expiry.
func (c *Client) AccessExpired() bool {
	if c.session == nil {
		return false
	}
	expiresAt, ok := c.session.AccessExpiresAt()
	if !ok {
		return false
	}
	return !c.clock.Now().Before(expiresAt)
}

// GetSession asks the server who the current session belongs to.
func (c *Client) GetSession(ctx context.Context) (*SessionInfo, error) {
	info, err := query[SessionInfo](ctx, c, methodGetSession, xrpc.Params{}, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: get session: %w", err)
	}
	return info, nil
}

// authMode says whether a call may go out without a session.
type authMode int

const (
	authOptional authMode = iota
	authRequired
)

// withAuth runs call with the current access token (empty when no
// session is held and mode allows it). With AutoRefresh enabled, an
// ExpiredToken failure triggers exactly one refresh and one retry.
func (c *Client) withAuth(ctx context.Context, mode authMode, call func(token string) error) error {
	token := ""
	if c.session != nil {
		token = c.session.AccessJwt
	} else if mode == authRequired {
		return ErrMissingSession
	}

	err := call(token)
	if err == nil || token == "" || !c.autoRefresh || !xrpc.IsError(err, xrpc.ErrKindExpiredToken) {
		return err
	}

	c.logger.Debug("access token expired, refreshing")
	if _, refreshErr := c.RefreshSession(ctx); refreshErr != nil {
		return fmt.Errorf("%w (automatic refresh failed: %w)", err, refreshErr)
	}
	return call(c.session.AccessJwt)
}

func query[T any](ctx context.Context, c *Client, method string, params xrpc.Params, mode authMode) (*T, error) {
	var result *T
	err := c.withAuth(ctx, mode, func(token string) error {
		var err error
		result, err = xrpc.Query[T](ctx, c.xrpc, method, params, token)
		return err
	})
	return result, err
}

func procedure[T any](ctx context.Context, c *Client, method string, input any) (*T, error) {
	var result *T
	err := c.withAuth(ctx, authRequired, func(token string) error {
		var err error
		result, err = xrpc.Procedure[T](ctx, c.xrpc, method, input, token)
		return err
	})
	return result, err
}

func procedureNoContent(ctx context.Context, c *Client, method string, input any) error {
	return c.withAuth(ctx, authRequired, func(token string) error {
		return xrpc.ProcedureNoContent(ctx, c.xrpc, method, input, token)
	})
}

// Me returns a handle scoped to the logged-in account.
func (c *Client) Me() (*Me, error) {
	if c.session == nil {
		return nil, ErrMissingSession
	}
	return &Me{client: c, did: c.session.DID}, nil
}

// User returns a handle scoped to another actor, named by handle or DID.
// A session is required even though most User calls are reads: the
// handle is meant for an authenticated view of the network.
func (c *Client) User(identifier string) (*User, error) {
	if c.session == nil {
		return nil, ErrMissingSession
	}
	actor, err := syntax.ParseAtIdentifier(identifier)
	if err != nil {
		return nil, fmt.Errorf("atproto: user: %w", err)
	}
	return &User{client: c, actor: actor}, nil
}
