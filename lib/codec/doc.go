// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration.
//
// Two serialization formats meet in this module:
//
//   - JSON for XRPC: every request and response body the dispatcher
//     exchanges with a PDS, and CLI --json output.
//   - CBOR (DAG-CBOR) for repository record blocks as they appear in
//     the firehose and CAR files, and for the CLI's on-disk session
//     file.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, which the session file
// relies on for its write-if-changed check.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Tagged values (CID links are tag 42) are produced and consumed through
// the [Tag] and [RawTag] aliases so callers never import fxamacker/cbor
// directly.
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever CBOR (the session file).
// A `json` tag marks a type that is serialized as both: fxamacker/cbor
// reads `json` tags when `cbor` tags are absent, so lexicon record
// types decode from firehose blocks with their JSON field names. Never
// put both tags on one field.
package codec
