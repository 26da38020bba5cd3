// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bureau-foundation/atproto/lib/syntax"
)

// EmbedView is the hydrated form of a post's embed.
type EmbedView struct {
	Images          *ImagesView
	External        *ExternalView
	Record          *RecordView
	RecordWithMedia *RecordWithMediaView
}

// ImagesView carries CDN URLs for each image.
type ImagesView struct {
	Images []ViewImage `json:"images"`
}

// ViewImage is one hydrated image.
type ViewImage struct {
	Thumb       string       `json:"thumb"`
	FullSize    string       `json:"fullsize"`
	Alt         string       `json:"alt"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

// ExternalView is a hydrated link card.
type ExternalView struct {
	External ViewExternal `json:"external"`
}

// ViewExternal describes the linked page with a thumbnail URL.
type ViewExternal struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb,omitempty"`
}

// RecordView is a hydrated quoted record.
type RecordView struct {
	Record EmbeddedRecord `json:"record"`
}

// RecordWithMediaView is a hydrated quote plus media.
type RecordWithMediaView struct {
	Record RecordView `json:"record"`
	Media  MediaView  `json:"media"`
}

// MediaView is the media half of RecordWithMediaView.
type MediaView struct {
	Images   *ImagesView
	External *ExternalView
}

// EmbeddedRecord is the quoted record itself, or a placeholder when it
// cannot be shown.
type EmbeddedRecord struct {
	Record   *ViewRecord
	NotFound *ViewNotFound
	Blocked  *ViewBlocked
}

// ViewRecord is a visible quoted record. Value holds the raw record so
// that quotes of non-post records (lists, feed generators) still decode.
type ViewRecord struct {
	URI       syntax.ATURI     `json:"uri"`
	CID       string           `json:"cid"`
	Author    ProfileViewBasic `json:"author"`
	Value     json.RawMessage  `json:"value"`
	IndexedAt time.Time        `json:"indexedAt"`
}

// ViewNotFound stands in for a deleted quoted record.
type ViewNotFound struct {
	URI      syntax.ATURI `json:"uri"`
	NotFound bool         `json:"notFound"`
}

// ViewBlocked stands in for a quoted record hidden by a block.
type ViewBlocked struct {
	URI     syntax.ATURI  `json:"uri"`
	Blocked bool          `json:"blocked"`
	Author  BlockedAuthor `json:"author"`
}

func (v ImagesView) MarshalJSON() ([]byte, error) {
	type plain ImagesView
	return marshalTyped(TypeEmbedImagesView, plain(v))
}

func (v ExternalView) MarshalJSON() ([]byte, error) {
	type plain ExternalView
	return marshalTyped(TypeEmbedExternalView, plain(v))
}

func (v RecordView) MarshalJSON() ([]byte, error) {
	type plain RecordView
	return marshalTyped(TypeEmbedRecordView, plain(v))
}

func (v RecordWithMediaView) MarshalJSON() ([]byte, error) {
	type plain RecordWithMediaView
	return marshalTyped(TypeEmbedRecordWithMediaView, plain(v))
}

func (v ViewRecord) MarshalJSON() ([]byte, error) {
	type plain ViewRecord
	return marshalTyped(TypeEmbedRecordViewRecord, plain(v))
}

func (v ViewNotFound) MarshalJSON() ([]byte, error) {
	type plain ViewNotFound
	return marshalTyped(TypeEmbedRecordViewNotFound, plain(v))
}

func (v ViewBlocked) MarshalJSON() ([]byte, error) {
	type plain ViewBlocked
	return marshalTyped(TypeEmbedRecordViewBlocked, plain(v))
}

func (e EmbedView) MarshalJSON() ([]byte, error) {
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
	return nil, fmt.Errorf("lexicon: embed view: %w", errEmptyUnion)
}

func (e *EmbedView) UnmarshalJSON(data []byte) error {
	const union = "embed view"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*e = EmbedView{}
	switch typeName {
	case TypeEmbedImagesView:
		e.Images, err = decodeVariant[ImagesView](data, json.Unmarshal)
	case TypeEmbedExternalView:
		e.External, err = decodeVariant[ExternalView](data, json.Unmarshal)
	case TypeEmbedRecordView:
		e.Record, err = decodeVariant[RecordView](data, json.Unmarshal)
	case TypeEmbedRecordWithMediaView:
		e.RecordWithMedia, err = decodeVariant[RecordWithMediaView](data, json.Unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

func (m MediaView) MarshalJSON() ([]byte, error) {
	switch {
	case m.Images != nil:
		return json.Marshal(m.Images)
	case m.External != nil:
		return json.Marshal(m.External)
	}
	return nil, fmt.Errorf("lexicon: media view: %w", errEmptyUnion)
}

func (m *MediaView) UnmarshalJSON(data []byte) error {
	const union = "media view"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*m = MediaView{}
	switch typeName {
	case TypeEmbedImagesView:
		m.Images, err = decodeVariant[ImagesView](data, json.Unmarshal)
	case TypeEmbedExternalView:
		m.External, err = decodeVariant[ExternalView](data, json.Unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

func (r EmbeddedRecord) MarshalJSON() ([]byte, error) {
	switch {
	case r.Record != nil:
		return json.Marshal(r.Record)
	case r.NotFound != nil:
		return json.Marshal(r.NotFound)
	case r.Blocked != nil:
		return json.Marshal(r.Blocked)
	}
	return nil, fmt.Errorf("lexicon: embedded record: %w", errEmptyUnion)
}

func (r *EmbeddedRecord) UnmarshalJSON(data []byte) error {
	const union = "embedded record"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*r = EmbeddedRecord{}
	switch typeName {
	case TypeEmbedRecordViewRecord:
		r.Record, err = decodeVariant[ViewRecord](data, json.Unmarshal)
	case TypeEmbedRecordViewNotFound:
		r.NotFound, err = decodeVariant[ViewNotFound](data, json.Unmarshal)
	case TypeEmbedRecordViewBlocked:
		r.Blocked, err = decodeVariant[ViewBlocked](data, json.Unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}
