// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bureau-foundation/atproto/lib/syntax"
)

// Session is an authenticated session with a PDS.
type Session struct {
	DID        syntax.DID    `json:"did"`
	Handle     syntax.Handle `json:"handle"`
	AccessJwt  string        `json:"accessJwt"`
	RefreshJwt string        `json:"refreshJwt"`
}

// Validate checks that every field needed to make authorized calls is
// present.
func (s Session) Validate() error {
	var errs []error
	if s.DID.IsZero() {
		errs = append(errs, errors.New("session: did is required"))
	}
	if s.AccessJwt == "" {
		errs = append(errs, errors.New("session: access token is required"))
	}
	if s.RefreshJwt == "" {
		errs = append(errs, errors.New("session: refresh token is required"))
	}
	return errors.Join(errs...)
}

// AccessExpiresAt returns the expiry of the access token, read from its
// "exp" claim without verifying the signature. The second result is
// false when the token is not a JWT or has no expiry.
func (s Session) AccessExpiresAt() (time.Time, bool) {
	return tokenExpiry(s.AccessJwt)
}

// RefreshExpiresAt returns the expiry of the refresh token.
func (s Session) RefreshExpiresAt() (time.Time, bool) {
	return tokenExpiry(s.RefreshJwt)
}

// tokenExpiry decodes the exp claim. Tokens are opaque to the client
// except for scheduling: the signature belongs to the server and is
// never checked here.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// SessionInfo is the server's view of the current session, returned by
// com.atproto.server.getSession.
type SessionInfo struct {
	DID            syntax.DID    `json:"did"`
	Handle         syntax.Handle `json:"handle"`
	Email          string        `json:"email,omitempty"`
	EmailConfirmed bool          `json:"emailConfirmed,omitempty"`
	Active         *bool         `json:"active,omitempty"`
	Status         string        `json:"status,omitempty"`
}

// sessionOutput is the response of createSession and refreshSession.
type sessionOutput struct {
	DID        syntax.DID    `json:"did"`
	Handle     syntax.Handle `json:"handle"`
	AccessJwt  string        `json:"accessJwt"`
	RefreshJwt string        `json:"refreshJwt"`
}

func (o sessionOutput) session() Session {
	return Session{
		DID:        o.DID,
		Handle:     o.Handle,
		AccessJwt:  o.AccessJwt,
		RefreshJwt: o.RefreshJwt,
	}
}
