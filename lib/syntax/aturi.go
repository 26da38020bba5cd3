// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax

import (
	"fmt"
	"strings"
)

const atURIScheme = "at://"

// ATURI is a validated "at://" URI addressing a repository, a
// collection within it, or a single record:
//
//	at://did:plc:abc
//	at://did:plc:abc/app.bsky.feed.post
//	at://did:plc:abc/app.bsky.feed.post/3l3qo2vuowo2b
//
// The authority may be a DID or a handle. Query strings and fragments
// are not supported; record references never carry them.
type ATURI struct {
	authority  AtIdentifier
	collection NSID
	recordKey  RecordKey
}

// ParseATURI validates a raw AT-URI.
func ParseATURI(raw string) (ATURI, error) {
	rest, found := strings.CutPrefix(raw, atURIScheme)
	if !found {
		return ATURI{}, fmt.Errorf("AT-URI %q must start with %q", raw, atURIScheme)
	}
	if strings.ContainsAny(rest, "?#") {
		return ATURI{}, fmt.Errorf("AT-URI %q: query and fragment are not supported", raw)
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 3 {
		return ATURI{}, fmt.Errorf("AT-URI %q has too many path segments", raw)
	}

	var uri ATURI
	var err error
	uri.authority, err = ParseAtIdentifier(parts[0])
	if err != nil {
		return ATURI{}, fmt.Errorf("AT-URI %q authority: %w", raw, err)
	}
	if len(parts) >= 2 {
		uri.collection, err = ParseNSID(parts[1])
		if err != nil {
			return ATURI{}, fmt.Errorf("AT-URI %q collection: %w", raw, err)
		}
	}
	if len(parts) == 3 {
		uri.recordKey, err = ParseRecordKey(parts[2])
		if err != nil {
			return ATURI{}, fmt.Errorf("AT-URI %q record key: %w", raw, err)
		}
	}
	return uri, nil
}

// NewRecordURI builds the AT-URI of a single record.
func NewRecordURI(repo DID, collection NSID, recordKey RecordKey) ATURI {
	return ATURI{
		authority:  AtIdentifierFromDID(repo),
		collection: collection,
		recordKey:  recordKey,
	}
}

// Authority returns the repository identifier (DID or handle).
func (u ATURI) Authority() AtIdentifier { return u.authority }

// Collection returns the collection NSID, or the zero NSID for a
// repository-level URI.
func (u ATURI) Collection() NSID { return u.collection }

// RecordKey returns the record key, or the zero RecordKey when the URI
// does not address a single record.
func (u ATURI) RecordKey() RecordKey { return u.recordKey }

// IsZero reports whether the ATURI is the zero value.
func (u ATURI) IsZero() bool { return u.authority.IsZero() }

// String returns the canonical "at://" form.
func (u ATURI) String() string {
	if u.IsZero() {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(atURIScheme)
	builder.WriteString(u.authority.String())
	if !u.collection.IsZero() {
		builder.WriteByte('/')
		builder.WriteString(u.collection.String())
		if !u.recordKey.IsZero() {
			builder.WriteByte('/')
			builder.WriteString(u.recordKey.String())
		}
	}
	return builder.String()
}

// MarshalText implements encoding.TextMarshaler.
func (u ATURI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (u *ATURI) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*u = ATURI{}
		return nil
	}
	parsed, err := ParseATURI(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
