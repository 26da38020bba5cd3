// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/atproto/lib/codec"
)

// Embed is the union of things a post record can embed.
type Embed struct {
	Images          *Images
	External        *External
	Record          *EmbedRecord
	RecordWithMedia *RecordWithMedia
}

// Images is app.bsky.embed.images: up to four images.
type Images struct {
	Images []Image `json:"images"`
}

// Image is one embedded image.
type Image struct {
	Image       Blob         `json:"image"`
	Alt         string       `json:"alt"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

// AspectRatio is a width:height hint for layout before the image loads.
type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// External is app.bsky.embed.external: a link card.
type External struct {
	External ExternalObject `json:"external"`
}

// ExternalObject describes the linked page.
type ExternalObject struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       *Blob  `json:"thumb,omitempty"`
}

// EmbedRecord is app.bsky.embed.record: a quoted record.
type EmbedRecord struct {
	Record StrongRef `json:"record"`
}

// RecordWithMedia is a quoted record plus images or a link card.
type RecordWithMedia struct {
	Record EmbedRecord `json:"record"`
	Media  Media       `json:"media"`
}

// Media is the media half of RecordWithMedia.
type Media struct {
	Images   *Images
	External *External
}

func (i Images) MarshalJSON() ([]byte, error) {
	type plain Images
	return marshalTyped(TypeEmbedImages, plain(i))
}

func (e External) MarshalJSON() ([]byte, error) {
	type plain External
	return marshalTyped(TypeEmbedExternal, plain(e))
}

func (r EmbedRecord) MarshalJSON() ([]byte, error) {
	type plain EmbedRecord
	return marshalTyped(TypeEmbedRecord, plain(r))
}

func (r RecordWithMedia) MarshalJSON() ([]byte, error) {
	type plain RecordWithMedia
	return marshalTyped(TypeEmbedRecordWithMedia, plain(r))
}

// Type returns the "$type" of the variant that is set, or "".
func (e Embed) Type() string {
	switch {
	case e.Images != nil:
		return TypeEmbedImages
	case e.External != nil:
		return TypeEmbedExternal
	case e.Record != nil:
		return TypeEmbedRecord
	case e.RecordWithMedia != nil:
		return TypeEmbedRecordWithMedia
	}
	return ""
}

func (e Embed) MarshalJSON() ([]byte, error) {
	switch {
	case e.Images != nil:
		return json.Marshal(e.Images)
	case e.External != nil:
		return json.Marshal(e.External)
	case e.Record != nil:
		return json.Marshal(e.Record)
	case e.RecordWithMedia != nil:
		return json.Marshal(e.RecordWithMedia)
	}
	return nil, fmt.Errorf("lexicon: post embed: %w", errEmptyUnion)
}

func (e *Embed) UnmarshalJSON(data []byte) error { return e.decode(data, json.Unmarshal) }

func (e *Embed) UnmarshalCBOR(data []byte) error { return e.decode(data, codec.Unmarshal) }

func (e *Embed) decode(data []byte, unmarshal unmarshalFunc) error {
	const union = "post embed"
	typeName, err := peekType(data, unmarshal, union)
	if err != nil {
		return err
	}
	*e = Embed{}
	switch typeName {
	case TypeEmbedImages:
		e.Images, err = decodeVariant[Images](data, unmarshal)
	case TypeEmbedExternal:
		e.External, err = decodeVariant[External](data, unmarshal)
	case TypeEmbedRecord:
		e.Record, err = decodeVariant[EmbedRecord](data, unmarshal)
	case TypeEmbedRecordWithMedia:
		e.RecordWithMedia, err = decodeVariant[RecordWithMedia](data, unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

func (m Media) MarshalJSON() ([]byte, error) {
	switch {
	case m.Images != nil:
		return json.Marshal(m.Images)
	case m.External != nil:
		return json.Marshal(m.External)
	}
	return nil, fmt.Errorf("lexicon: record media: %w", errEmptyUnion)
}

func (m *Media) UnmarshalJSON(data []byte) error { return m.decode(data, json.Unmarshal) }

func (m *Media) UnmarshalCBOR(data []byte) error { return m.decode(data, codec.Unmarshal) }

func (m *Media) decode(data []byte, unmarshal unmarshalFunc) error {
	const union = "record media"
	typeName, err := peekType(data, unmarshal, union)
	if err != nil {
		return err
	}
	*m = Media{}
	switch typeName {
	case TypeEmbedImages:
		m.Images, err = decodeVariant[Images](data, unmarshal)
	case TypeEmbedExternal:
		m.External, err = decodeVariant[External](data, unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}
