// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lexicon defines the record and view types exchanged with a
// PDS: repository records (posts, likes, reposts, follows, profiles),
// the hydrated views returned by app.bsky queries, and the references
// and blobs that tie them together.
//
// # Tagged unions
//
// Fields that may hold one of several shapes are keyed by a "$type"
// member on the wire. Each union is a Go struct with one pointer field
// per variant; exactly one is set. Decoding dispatches on "$type" and
// returns an [*UnknownTypeError] for a tag the union does not list.
// Encoding writes "$type" back. Record types and union members carry
// their own "$type" on encode via [Typed].
//
// Union types decode from both JSON (XRPC bodies) and DAG-CBOR
// (repository record blocks, see [DecodeRecordBlock]). In CBOR, a blob
// reference is a tag-42 CID link rather than a {"$link": ...} object;
// [CIDLink] handles both.
//
// # References
//
// [StrongRef] is validated on construction and on decode: both the
// AT-URI and the CID must be present and well-formed. [RecordRef] is
// what a write returns; its CID string is kept verbatim so it can be
// passed back as a swap precondition.
package lexicon
