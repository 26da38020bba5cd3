// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/bureau-foundation/atproto/lib/codec"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// StrongRef addresses one specific version of a record: its AT-URI and
// the CID of its content. Both are always present; a StrongRef with
// either missing cannot be constructed, decoded, or encoded.
type StrongRef struct {
	uri syntax.ATURI
	cid cid.Cid
}

// NewStrongRef validates uri and cidString and returns the reference.
func NewStrongRef(uri, cidString string) (StrongRef, error) {
	var ref StrongRef
	if err := ref.set(uri, cidString); err != nil {
		return StrongRef{}, err
	}
	return ref, nil
}

func (r *StrongRef) set(uri, cidString string) error {
	if uri == "" || cidString == "" {
		return errors.New("lexicon: strong ref requires both uri and cid")
	}
	parsedURI, err := syntax.ParseATURI(uri)
	if err != nil {
		return fmt.Errorf("lexicon: strong ref uri: %w", err)
	}
	if parsedURI.RecordKey().IsZero() {
		return fmt.Errorf("lexicon: strong ref uri %q does not address a record", uri)
	}
	parsedCID, err := cid.Decode(cidString)
	if err != nil {
		return fmt.Errorf("lexicon: strong ref cid %q: %w", cidString, err)
	}
	r.uri = parsedURI
	r.cid = parsedCID
	return nil
}

// URI returns the record's AT-URI.
func (r StrongRef) URI() syntax.ATURI { return r.uri }

// CID returns the content identifier.
func (r StrongRef) CID() cid.Cid { return r.cid }

// IsZero reports whether r is the zero value.
func (r StrongRef) IsZero() bool { return r.uri.IsZero() }

type strongRefWire struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// MarshalJSON implements json.Marshaler.
func (r StrongRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return nil, errors.New("lexicon: cannot encode an empty strong ref")
	}
	return json.Marshal(strongRefWire{URI: r.uri.String(), CID: r.cid.String()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *StrongRef) UnmarshalJSON(data []byte) error {
	var wire strongRefWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	return r.set(wire.URI, wire.CID)
}

// UnmarshalCBOR decodes the record-block form, where cid is a string.
func (r *StrongRef) UnmarshalCBOR(data []byte) error {
	var wire strongRefWire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return err
	}
	return r.set(wire.URI, wire.CID)
}

// ReplyRef links a reply to its thread root and immediate parent.
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// RecordRef is the result of a repository write.
type RecordRef struct {
	URI syntax.ATURI `json:"uri"`
	CID string       `json:"cid"`
}

// StrongRef converts the write result into a validated reference,
// e.g. to like or reply to the record just created.
func (r RecordRef) StrongRef() (StrongRef, error) {
	return NewStrongRef(r.URI.String(), r.CID)
}

// Record is a stored record: where it lives, its content hash, and its
// decoded value.
type Record[T any] struct {
	URI   syntax.ATURI `json:"uri"`
	CID   string       `json:"cid,omitempty"`
	Value T            `json:"value"`
}

// Ref returns the record's location and CID as a RecordRef.
func (r Record[T]) Ref() RecordRef {
	return RecordRef{URI: r.URI, CID: r.CID}
}
