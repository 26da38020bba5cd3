// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/bureau-foundation/atproto/lib/codec"
)

// cidLinkTag is the CBOR tag for a CID link (IPLD DAG-CBOR).
const cidLinkTag = 42

// CIDLink is a content link. In JSON it is {"$link": "<cid>"}; in
// DAG-CBOR it is tag 42 wrapping a byte string of 0x00 followed by
// the binary CID.
type CIDLink struct {
	cid cid.Cid
}

// NewCIDLink wraps an already-parsed CID.
func NewCIDLink(c cid.Cid) CIDLink { return CIDLink{cid: c} }

// ParseCIDLink parses the string form of a CID.
func ParseCIDLink(raw string) (CIDLink, error) {
	parsed, err := cid.Decode(raw)
	if err != nil {
		return CIDLink{}, fmt.Errorf("lexicon: cid %q: %w", raw, err)
	}
	return CIDLink{cid: parsed}, nil
}

// CID returns the linked CID.
func (l CIDLink) CID() cid.Cid { return l.cid }

// String returns the multibase string form, or "" for the zero value.
func (l CIDLink) String() string {
	if !l.cid.Defined() {
		return ""
	}
	return l.cid.String()
}

// IsZero reports whether no CID is set.
func (l CIDLink) IsZero() bool { return !l.cid.Defined() }

// Equal reports whether two links name the same content.
func (l CIDLink) Equal(other CIDLink) bool { return l.cid.Equals(other.cid) }

type cidLinkWire struct {
	Link string `json:"$link"`
}

// MarshalJSON implements json.Marshaler.
func (l CIDLink) MarshalJSON() ([]byte, error) {
	if l.IsZero() {
		return nil, errors.New("lexicon: cannot encode an empty cid link")
	}
	return json.Marshal(cidLinkWire{Link: l.cid.String()})
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *CIDLink) UnmarshalJSON(data []byte) error {
	var wire cidLinkWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	parsed, err := ParseCIDLink(wire.Link)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalCBOR encodes the link as tag 42.
func (l CIDLink) MarshalCBOR() ([]byte, error) {
	if l.IsZero() {
		return nil, errors.New("lexicon: cannot encode an empty cid link")
	}
	content := append([]byte{0x00}, l.cid.Bytes()...)
	return codec.Marshal(codec.Tag{Number: cidLinkTag, Content: content})
}

// UnmarshalCBOR decodes a tag-42 link.
func (l *CIDLink) UnmarshalCBOR(data []byte) error {
	var tag codec.RawTag
	if err := codec.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("lexicon: cid link: %w", err)
	}
	if tag.Number != cidLinkTag {
		return fmt.Errorf("lexicon: cid link: expected tag %d, got %d", cidLinkTag, tag.Number)
	}
	var content []byte
	if err := codec.Unmarshal(tag.Content, &content); err != nil {
		return fmt.Errorf("lexicon: cid link content: %w", err)
	}
	if len(content) < 2 || content[0] != 0x00 {
		return errors.New("lexicon: cid link content must start with the identity multibase prefix")
	}
	parsed, err := cid.Cast(content[1:])
	if err != nil {
		return fmt.Errorf("lexicon: cid link: %w", err)
	}
	l.cid = parsed
	return nil
}

// Blob references uploaded binary content.
type Blob struct {
	Ref      CIDLink `json:"ref"`
	MimeType string  `json:"mimeType"`
	Size     int64   `json:"size"`
}

// LexiconType implements Typed.
func (Blob) LexiconType() string { return TypeBlob }

// MarshalJSON writes the blob with its "$type".
func (b Blob) MarshalJSON() ([]byte, error) {
	type plain Blob
	return marshalTyped(TypeBlob, plain(b))
}

// ComputeBlobCID returns the CID a PDS assigns to data: CIDv1, raw
// codec, sha2-256.
func ComputeBlobCID(data []byte) (cid.Cid, error) {
	hash, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("lexicon: hashing blob: %w", err)
	}
	return cid.NewCidV1(cid.Raw, hash), nil
}
