// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Typed is implemented by values that carry a "$type" on the wire.
type Typed interface {
	LexiconType() string
}

// UnknownTypeError is returned when a union value's "$type" is not one
// of the variants the union lists, or is missing.
//
// Callers detect it with errors.As:
//
//	var unknown *lexicon.UnknownTypeError
//	if errors.As(err, &unknown) {
//	    log.Printf("skipping %s", unknown.Type)
//	}
type UnknownTypeError struct {
	// Union names the field being decoded, e.g. "post embed".
	Union string
	// Type is the "$type" value found; empty when the member is absent.
	Type string
}

func (e *UnknownTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("lexicon: %s: missing $type", e.Union)
	}
	return fmt.Sprintf("lexicon: %s: unknown $type %q", e.Union, e.Type)
}

// errEmptyUnion is returned when encoding a union with no variant set.
var errEmptyUnion = errors.New("no variant set")

// unmarshalFunc is json.Unmarshal or codec.Unmarshal.
type unmarshalFunc func(data []byte, v any) error

// peekType reads the "$type" member of an object without decoding the
// rest of it.
func peekType(data []byte, unmarshal unmarshalFunc, union string) (string, error) {
	var head struct {
		Type string `json:"$type"`
	}
	if err := unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == "" {
		return "", &UnknownTypeError{Union: union}
	}
	return head.Type, nil
}

// marshalTyped encodes v as a JSON object with "$type" as its first
// member. v must encode as an object and must not itself implement
// json.Marshaler by way of marshalTyped, or the call recurses.
func marshalTyped(typeName string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("lexicon: %s does not encode as an object", typeName)
	}
	quoted, err := json.Marshal(typeName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(quoted)+10)
	out = append(out, `{"$type":`...)
	out = append(out, quoted...)
	if string(body) != "{}" {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

// decodeVariant unmarshals data into a fresh T and returns its address.
func decodeVariant[T any](data []byte, unmarshal unmarshalFunc) (*T, error) {
	var value T
	if err := unmarshal(data, &value); err != nil {
		return nil, err
	}
	return &value, nil
}
