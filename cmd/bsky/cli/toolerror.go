// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/lib/sessionstore"
	"github.com/bureau-foundation/atproto/xrpc"
)

// ErrorCategory classifies command errors so scripts can branch on the
// exit code rather than the message text.
type ErrorCategory string

const (
	// CategoryValidation: bad arguments or flags. Fix the input.
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuth: no session, or the PDS rejected its tokens.
	// Run "bsky login".
	CategoryAuth ErrorCategory = "auth"
	// CategoryNotFound: the record, repo, or actor does not exist.
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConflict: a swap precondition failed.
	CategoryConflict ErrorCategory = "conflict"
	// CategoryTransient: network failure, timeout, rate limit, or a
	// server-side error. Retrying may help.
	CategoryTransient ErrorCategory = "transient"
	// CategoryInternal: anything else, including responses that did
	// not match the expected shape.
	CategoryInternal ErrorCategory = "internal"
)

// exitCodes maps each category to the process exit status.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryAuth:       3,
	CategoryNotFound:   4,
	CategoryConflict:   5,
	CategoryTransient:  6,
	CategoryInternal:   1,
}

// ToolError is a categorized command error. It wraps the underlying
// error so errors.Is and errors.As still see the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode returns the process exit status for the error's category.
func (e *ToolError) ExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return 1
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError whose category follows from the
// client's error taxonomy. An error that already carries a category is
// returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	return &ToolError{Category: categoryOf(err), Err: err}
}

func categoryOf(err error) ErrorCategory {
	if errors.Is(err, atproto.ErrMissingSession) || errors.Is(err, sessionstore.ErrNoSession) {
		return CategoryAuth
	}

	var xrpcErr *xrpc.Error
	if errors.As(err, &xrpcErr) {
		switch xrpcErr.Kind {
		case xrpc.ErrKindExpiredToken, xrpc.ErrKindInvalidToken,
			xrpc.ErrKindAuthenticationRequired, xrpc.ErrKindAuthFactorTokenRequired,
			xrpc.ErrKindAccountTakedown:
			return CategoryAuth
		case xrpc.ErrKindRecordNotFound, xrpc.ErrKindRepoNotFound:
			return CategoryNotFound
		case xrpc.ErrKindInvalidSwap:
			return CategoryConflict
		case xrpc.ErrKindRateLimitExceeded, xrpc.ErrKindInternalServerError:
			return CategoryTransient
		case xrpc.ErrKindInvalidRequest, xrpc.ErrKindBlobTooLarge:
			return CategoryValidation
		}
		if xrpcErr.StatusCode >= 500 {
			return CategoryTransient
		}
		return CategoryInternal
	}

	var transportErr *xrpc.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.StatusCode >= 400 && transportErr.StatusCode < 500 {
			return CategoryInternal
		}
		return CategoryTransient
	}
	return CategoryInternal
}

// Hint returns a one-line suggestion for recovering from err, or "".
func Hint(err error) string {
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		return ""
	}
	switch toolErr.Category {
	case CategoryAuth:
		return `run "bsky login <handle>" to start a new session`
	case CategoryConflict:
		return "the record changed since it was read; fetch it again and retry"
	case CategoryTransient:
		return "the failure may be temporary; retry later"
	}
	return ""
}
