// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bureau-foundation/atproto/lib/codec"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// Post is an app.bsky.feed.post record.
type Post struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Reply     *ReplyRef `json:"reply,omitempty"`
	Embed     *Embed    `json:"embed,omitempty"`
	Langs     []string  `json:"langs,omitempty"`
	Facets    []Facet   `json:"facets,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

func (Post) LexiconType() string { return TypePost }

func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	return marshalTyped(TypePost, plain(p))
}

// Like is an app.bsky.feed.like record.
type Like struct {
	Subject   StrongRef `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Like) LexiconType() string { return TypeLike }

func (l Like) MarshalJSON() ([]byte, error) {
	type plain Like
	return marshalTyped(TypeLike, plain(l))
}

// Repost is an app.bsky.feed.repost record.
type Repost struct {
	Subject   StrongRef `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Repost) LexiconType() string { return TypeRepost }

func (r Repost) MarshalJSON() ([]byte, error) {
	type plain Repost
	return marshalTyped(TypeRepost, plain(r))
}

// Follow is an app.bsky.graph.follow record.
type Follow struct {
	Subject   syntax.DID `json:"subject"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (Follow) LexiconType() string { return TypeFollow }

func (f Follow) MarshalJSON() ([]byte, error) {
	type plain Follow
	return marshalTyped(TypeFollow, plain(f))
}

// Profile is the app.bsky.actor.profile record, stored under the
// record key "self".
type Profile struct {
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Avatar      *Blob  `json:"avatar,omitempty"`
	Banner      *Blob  `json:"banner,omitempty"`
}

func (Profile) LexiconType() string { return TypeProfile }

func (p Profile) MarshalJSON() ([]byte, error) {
	type plain Profile
	return marshalTyped(TypeProfile, plain(p))
}

// Facet annotates a byte range of post text.
type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// ByteSlice is a half-open range of UTF-8 byte offsets into the text.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

// FacetFeature is a union of mention, link, and tag.
type FacetFeature struct {
	Mention *FacetMention
	Link    *FacetLink
	Tag     *FacetTag
}

// FacetMention points the range at an account.
type FacetMention struct {
	DID syntax.DID `json:"did"`
}

// FacetLink points the range at a URL.
type FacetLink struct {
	URI string `json:"uri"`
}

// FacetTag marks the range as a hashtag (without the '#').
type FacetTag struct {
	Tag string `json:"tag"`
}

func (m FacetMention) MarshalJSON() ([]byte, error) {
	type plain FacetMention
	return marshalTyped(TypeFacetMention, plain(m))
}

func (l FacetLink) MarshalJSON() ([]byte, error) {
	type plain FacetLink
	return marshalTyped(TypeFacetLink, plain(l))
}

func (t FacetTag) MarshalJSON() ([]byte, error) {
	type plain FacetTag
	return marshalTyped(TypeFacetTag, plain(t))
}

func (f FacetFeature) MarshalJSON() ([]byte, error) {
	switch {
	case f.Mention != nil:
		return json.Marshal(f.Mention)
	case f.Link != nil:
		return json.Marshal(f.Link)
	case f.Tag != nil:
		return json.Marshal(f.Tag)
	}
	return nil, fmt.Errorf("lexicon: facet feature: %w", errEmptyUnion)
}

func (f *FacetFeature) UnmarshalJSON(data []byte) error {
	return f.decode(data, json.Unmarshal)
}

func (f *FacetFeature) UnmarshalCBOR(data []byte) error {
	return f.decode(data, codec.Unmarshal)
}

func (f *FacetFeature) decode(data []byte, unmarshal unmarshalFunc) error {
	const union = "facet feature"
	typeName, err := peekType(data, unmarshal, union)
	if err != nil {
		return err
	}
	*f = FacetFeature{}
	switch typeName {
	case TypeFacetMention:
		f.Mention, err = decodeVariant[FacetMention](data, unmarshal)
	case TypeFacetLink:
		f.Link, err = decodeVariant[FacetLink](data, unmarshal)
	case TypeFacetTag:
		f.Tag, err = decodeVariant[FacetTag](data, unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}
