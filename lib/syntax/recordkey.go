// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax

import "fmt"

const maxRecordKeyLength = 512

// RecordKey names one record within a collection (the last path segment
// of an AT-URI). Server-assigned keys are timestamp identifiers, but any
// string from the allowed character set is a valid key.
type RecordKey struct {
	key string
}

// ParseRecordKey validates a raw record key: 1-512 characters from
// A-Z a-z 0-9 . - _ : ~, and not "." or "..".
func ParseRecordKey(raw string) (RecordKey, error) {
	if raw == "" {
		return RecordKey{}, fmt.Errorf("record key is empty")
	}
	if len(raw) > maxRecordKeyLength {
		return RecordKey{}, fmt.Errorf("record key is %d bytes, maximum is %d", len(raw), maxRecordKeyLength)
	}
	if raw == "." || raw == ".." {
		return RecordKey{}, fmt.Errorf("record key %q is reserved", raw)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '-', c == '_', c == ':', c == '~':
		default:
			return RecordKey{}, fmt.Errorf("record key %q: invalid character %q at position %d", raw, c, i)
		}
	}
	return RecordKey{key: raw}, nil
}

// String returns the record key.
func (k RecordKey) String() string { return k.key }

// IsZero reports whether the RecordKey is the zero value.
func (k RecordKey) IsZero() bool { return k.key == "" }

// MarshalText implements encoding.TextMarshaler.
func (k RecordKey) MarshalText() ([]byte, error) {
	return []byte(k.key), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RecordKey) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*k = RecordKey{}
		return nil
	}
	parsed, err := ParseRecordKey(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
