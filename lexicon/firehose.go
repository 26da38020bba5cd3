// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"fmt"

	"github.com/bureau-foundation/atproto/lib/codec"
)

// DecodeRecordBlock decodes a DAG-CBOR record block, as carried in a
// repository CAR file or a firehose commit, into the record type its
// "$type" names. The result is one of *Post, *Like, *Repost, *Follow,
// or *Profile. Other types produce an *UnknownTypeError.
func DecodeRecordBlock(block []byte) (RecordValue, error) {
	const union = "record block"
	typeName, err := peekType(block, codec.Unmarshal, union)
	if err != nil {
		return nil, fmt.Errorf("lexicon: decoding record block: %w", err)
	}

	var record RecordValue
	switch typeName {
	case TypePost:
		record, err = decodeBlock[Post](block)
	case TypeLike:
		record, err = decodeBlock[Like](block)
	case TypeRepost:
		record, err = decodeBlock[Repost](block)
	case TypeFollow:
		record, err = decodeBlock[Follow](block)
	case TypeProfile:
		record, err = decodeBlock[Profile](block)
	default:
		return nil, &UnknownTypeError{Union: union, Type: typeName}
	}
	if err != nil {
		return nil, fmt.Errorf("lexicon: decoding %s block: %w", typeName, err)
	}
	return record, nil
}

func decodeBlock[T any, PT interface {
	*T
	RecordValue
}](block []byte) (RecordValue, error) {
	value, err := decodeVariant[T](block, codec.Unmarshal)
	if err != nil {
		return nil, err
	}
	return PT(value), nil
}
