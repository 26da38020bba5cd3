// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"fmt"
	"strings"
)

const (
	maxHandleLength  = 253
	maxSegmentLength = 63
)

// Handle is a validated, DNS-style account handle (e.g.,
// "alice.bsky.social"). Handles are case-insensitive; Parse stores the
// lowercase form so that equal handles compare equal.
type Handle struct {
	handle string
}

// ParseHandle validates a raw handle: at least two dot-separated
// segments of 1-63 ASCII letters, digits and hyphens, no segment
// starting or ending with a hyphen, and a final segment that does not
// start with a digit.
func ParseHandle(raw string) (Handle, error) {
	if raw == "" {
		return Handle{}, fmt.Errorf("handle is empty")
	}
	if len(raw) > maxHandleLength {
		return Handle{}, fmt.Errorf("handle is %d bytes, maximum is %d", len(raw), maxHandleLength)
	}
	segments := strings.Split(raw, ".")
	if len(segments) < 2 {
		return Handle{}, fmt.Errorf("handle %q needs at least two segments", raw)
	}
	for _, segment := range segments {
		if err := validateDomainSegment(segment); err != nil {
			return Handle{}, fmt.Errorf("handle %q: %w", raw, err)
		}
	}
	last := segments[len(segments)-1]
	if last[0] >= '0' && last[0] <= '9' {
		return Handle{}, fmt.Errorf("handle %q: top-level segment must not start with a digit", raw)
	}
	return Handle{handle: strings.ToLower(raw)}, nil
}

// validateDomainSegment checks one dot-separated label of a handle or
// NSID authority.
func validateDomainSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("empty segment")
	}
	if len(segment) > maxSegmentLength {
		return fmt.Errorf("segment %q longer than %d characters", segment, maxSegmentLength)
	}
	if segment[0] == '-' || segment[len(segment)-1] == '-' {
		return fmt.Errorf("segment %q must not start or end with '-'", segment)
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return fmt.Errorf("invalid character %q in segment %q", c, segment)
		}
	}
	return nil
}

// String returns the normalized (lowercase) handle.
func (h Handle) String() string { return h.handle }

// IsZero reports whether the Handle is the zero value.
func (h Handle) IsZero() bool { return h.handle == "" }

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.handle), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (h *Handle) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*h = Handle{}
		return nil
	}
	parsed, err := ParseHandle(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// AtIdentifier is either a DID or a handle. Protocol methods that take
// an "actor" or "repo" parameter accept both forms.
type AtIdentifier struct {
	did    DID
	handle Handle
}

// ParseAtIdentifier accepts a DID (anything starting with "did:") or a
// handle. A leading '@' on a handle is stripped, since that is how
// handles are commonly written.
func ParseAtIdentifier(raw string) (AtIdentifier, error) {
	if strings.HasPrefix(raw, "did:") {
		did, err := ParseDID(raw)
		if err != nil {
			return AtIdentifier{}, err
		}
		return AtIdentifier{did: did}, nil
	}
	handle, err := ParseHandle(strings.TrimPrefix(raw, "@"))
	if err != nil {
		return AtIdentifier{}, err
	}
	return AtIdentifier{handle: handle}, nil
}

// AtIdentifierFromDID wraps an already-validated DID.
func AtIdentifierFromDID(did DID) AtIdentifier {
	return AtIdentifier{did: did}
}

// IsDID reports whether the identifier holds a DID.
func (a AtIdentifier) IsDID() bool { return !a.did.IsZero() }

// DID returns the DID and true, or the zero DID and false for a handle.
func (a AtIdentifier) DID() (DID, bool) { return a.did, !a.did.IsZero() }

// Handle returns the handle and true, or the zero Handle and false for
// a DID.
func (a AtIdentifier) Handle() (Handle, bool) { return a.handle, !a.handle.IsZero() }

// String returns the DID or handle string.
func (a AtIdentifier) String() string {
	if !a.did.IsZero() {
		return a.did.String()
	}
	return a.handle.String()
}

// IsZero reports whether neither form is set.
func (a AtIdentifier) IsZero() bool { return a.did.IsZero() && a.handle.IsZero() }

// MarshalText implements encoding.TextMarshaler.
func (a AtIdentifier) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (a *AtIdentifier) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = AtIdentifier{}
		return nil
	}
	parsed, err := ParseAtIdentifier(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
