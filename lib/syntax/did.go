// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"fmt"
	"strings"
)

// maxDIDLength bounds the full DID string.
const maxDIDLength = 2048

// DID is a validated decentralized identifier (e.g.,
// "did:plc:ewvi7nxzyoun6zhxrhs64oiz"). It is the stable identity of a
// repository owner: handles can change, DIDs do not.
//
// DID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type DID struct {
	did string
}

// ParseDID validates a raw DID string: the "did:" prefix, a lowercase
// method name, and a method-specific identifier drawn from the allowed
// character set that does not end in ':'.
func ParseDID(raw string) (DID, error) {
	if raw == "" {
		return DID{}, fmt.Errorf("DID is empty")
	}
	if len(raw) > maxDIDLength {
		return DID{}, fmt.Errorf("DID is %d bytes, maximum is %d", len(raw), maxDIDLength)
	}
	rest, found := strings.CutPrefix(raw, "did:")
	if !found {
		return DID{}, fmt.Errorf("DID %q must start with \"did:\"", raw)
	}
	method, identifier, found := strings.Cut(rest, ":")
	if !found || method == "" {
		return DID{}, fmt.Errorf("DID %q is missing a method", raw)
	}
	for i := 0; i < len(method); i++ {
		if method[i] < 'a' || method[i] > 'z' {
			return DID{}, fmt.Errorf("DID %q: method must be lowercase letters", raw)
		}
	}
	if identifier == "" {
		return DID{}, fmt.Errorf("DID %q has an empty identifier", raw)
	}
	for i := 0; i < len(identifier); i++ {
		if !isDIDIdentifierChar(identifier[i]) {
			return DID{}, fmt.Errorf("DID %q: invalid character %q in identifier", raw, identifier[i])
		}
	}
	if strings.HasSuffix(identifier, ":") {
		return DID{}, fmt.Errorf("DID %q must not end with ':'", raw)
	}
	return DID{did: raw}, nil
}

func isDIDIdentifierChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == ':', c == '%', c == '-':
		return true
	}
	return false
}

// String returns the full DID string.
func (d DID) String() string { return d.did }

// IsZero reports whether the DID is the zero value.
func (d DID) IsZero() bool { return d.did == "" }

// Method returns the DID method (e.g., "plc", "web"). Panics on a zero
// value.
func (d DID) Method() string {
	if d.did == "" {
		panic("DID.Method called on zero value")
	}
	method, _, _ := strings.Cut(strings.TrimPrefix(d.did, "did:"), ":")
	return method
}

// MarshalText implements encoding.TextMarshaler.
func (d DID) MarshalText() ([]byte, error) {
	return []byte(d.did), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (d *DID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = DID{}
		return nil
	}
	parsed, err := ParseDID(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
