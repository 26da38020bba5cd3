// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package syntax provides validated, immutable value types for the
// identifiers that appear in AT Protocol traffic: DIDs, handles, NSIDs
// (protocol method and collection names), record keys, and AT-URIs.
//
// Every type follows the same shape: a Parse function that validates a
// raw string, String for the canonical form, IsZero for the unset value,
// and encoding.TextMarshaler/TextUnmarshaler so the types can sit
// directly in JSON and CBOR structs. Unmarshaling an empty string yields
// the zero value rather than an error, matching optional fields on the
// wire.
//
// Validation is structural only. A syntactically valid DID may not
// resolve, and a syntactically valid handle may not be registered; those
// questions belong to the server.
package syntax
