// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"fmt"
	"strings"
)

const maxNSIDLength = 317

// NSID is a namespaced identifier naming a protocol method
// ("com.atproto.repo.createRecord") or a record collection
// ("app.bsky.feed.post"). It is a reversed domain authority followed by
// a name segment.
type NSID struct {
	nsid string
}

// ParseNSID validates a raw NSID: at least three dot-separated
// segments, domain-style authority segments, and a final name segment
// of ASCII letters and digits that starts with a letter.
func ParseNSID(raw string) (NSID, error) {
	if raw == "" {
		return NSID{}, fmt.Errorf("NSID is empty")
	}
	if len(raw) > maxNSIDLength {
		return NSID{}, fmt.Errorf("NSID is %d bytes, maximum is %d", len(raw), maxNSIDLength)
	}
	segments := strings.Split(raw, ".")
	if len(segments) < 3 {
		return NSID{}, fmt.Errorf("NSID %q needs at least three segments", raw)
	}
	for _, segment := range segments[:len(segments)-1] {
		if err := validateDomainSegment(segment); err != nil {
			return NSID{}, fmt.Errorf("NSID %q: %w", raw, err)
		}
	}
	if first := segments[0][0]; first >= '0' && first <= '9' {
		return NSID{}, fmt.Errorf("NSID %q: first segment must not start with a digit", raw)
	}
	name := segments[len(segments)-1]
	if name == "" {
		return NSID{}, fmt.Errorf("NSID %q has an empty name segment", raw)
	}
	if !(name[0] >= 'a' && name[0] <= 'z' || name[0] >= 'A' && name[0] <= 'Z') {
		return NSID{}, fmt.Errorf("NSID %q: name must start with a letter", raw)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return NSID{}, fmt.Errorf("NSID %q: invalid character %q in name", raw, c)
		}
	}
	return NSID{nsid: raw}, nil
}

// MustParseNSID is ParseNSID for compile-time constants. Panics on an
// invalid input.
func MustParseNSID(raw string) NSID {
	nsid, err := ParseNSID(raw)
	if err != nil {
		panic(err)
	}
	return nsid
}

// String returns the NSID.
func (n NSID) String() string { return n.nsid }

// IsZero reports whether the NSID is the zero value.
func (n NSID) IsZero() bool { return n.nsid == "" }

// Name returns the final segment (e.g., "post" for "app.bsky.feed.post").
func (n NSID) Name() string {
	return n.nsid[strings.LastIndexByte(n.nsid, '.')+1:]
}

// MarshalText implements encoding.TextMarshaler.
func (n NSID) MarshalText() ([]byte, error) {
	return []byte(n.nsid), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (n *NSID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*n = NSID{}
		return nil
	}
	parsed, err := ParseNSID(string(data))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
