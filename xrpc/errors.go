// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xrpc

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/atproto/lib/netutil"
)

// Error is a structured error response from the server. Callers use
// errors.As to extract it, or IsError to test the kind:
//
//	var xrpcErr *xrpc.Error
//	if errors.As(err, &xrpcErr) {
//	    if xrpcErr.Kind == xrpc.ErrKindRecordNotFound { ... }
//	}
type Error struct {
	// Kind is the machine-readable error name (e.g. "ExpiredToken").
	Kind string `json:"error"`
	// Message is the human-readable description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xrpc: %s (%d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("xrpc: %s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// Conflict reports whether the server rejected a write because a swap
// precondition did not hold.
func (e *Error) Conflict() bool {
	return e.Kind == ErrKindInvalidSwap
}

// Standard error kinds.
const (
	ErrKindExpiredToken            = "ExpiredToken"
	ErrKindInvalidToken            = "InvalidToken"
	ErrKindAuthenticationRequired  = "AuthenticationRequired"
	ErrKindAuthFactorTokenRequired = "AuthFactorTokenRequired"
	ErrKindAccountTakedown         = "AccountTakedown"
	ErrKindInvalidRequest          = "InvalidRequest"
	ErrKindInvalidSwap             = "InvalidSwap"
	ErrKindRecordNotFound          = "RecordNotFound"
	ErrKindRepoNotFound            = "RepoNotFound"
	ErrKindRateLimitExceeded       = "RateLimitExceeded"
	ErrKindBlobTooLarge            = "BlobTooLarge"
	ErrKindInternalServerError     = "InternalServerError"
)

// IsError reports whether err is an *Error of the given kind.
func IsError(err error, kind string) bool {
	var xrpcErr *Error
	if errors.As(err, &xrpcErr) {
		return xrpcErr.Kind == kind
	}
	return false
}

// TransportError reports a request that did not produce a usable
// response: a network failure (StatusCode 0), or a non-2xx status
// whose body is not a structured error.
type TransportError struct {
	Method     string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("xrpc: %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("xrpc: %s: unexpected %d response: %s", e.Method, e.StatusCode, netutil.Snippet(e.Body))
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the request failed because a deadline passed.
func (e *TransportError) Timeout() bool {
	return netutil.IsTimeout(e.Err)
}

// DecodeError reports a 2xx response whose body does not match the
// expected shape.
type DecodeError struct {
	Method string
	Body   []byte
	// Path is the dotted JSON field path of the mismatch, when known.
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("xrpc: %s: decoding response at %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("xrpc: %s: decoding response: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
