// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers shared by the XRPC
// dispatcher and the CLI.
//
// ReadResponse bounds response body reads at MaxResponseSize so that a
// misbehaving server cannot exhaust memory. XRPC responses are JSON
// documents measured in kilobytes; blob downloads are not part of this
// client. Snippet trims a body for inclusion in an error message.
// IsTimeout classifies transport failures caused by deadlines.
package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"unicode/utf8"
)

// MaxResponseSize is the bound on XRPC response body reads: 32 MB. The
// largest legitimate responses (a 100-item page of feed views with
// embeds) are well under a megabyte.
const MaxResponseSize int64 = 32 << 20

// maxSnippetLength bounds how much of a response body is quoted in an
// error message.
const maxSnippetLength = 512

// ErrResponseTooLarge is returned by ReadResponse when the body exceeds
// MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadResponse reads a response body up to MaxResponseSize bytes. A body
// that is longer than the limit is an error rather than a silently
// truncated document, since a truncated JSON body would otherwise
// surface later as a confusing decode failure.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, MaxResponseSize)
	}
	return data, nil
}

// Snippet returns a printable prefix of body for diagnostic messages.
// Bodies longer than the snippet limit are cut at a rune boundary and
// marked with an ellipsis.
func Snippet(body []byte) string {
	if len(body) <= maxSnippetLength {
		return string(body)
	}
	cut := maxSnippetLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

// IsTimeout reports whether err was caused by a deadline: a context
// deadline, an http.Client timeout, or a net.Error timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
