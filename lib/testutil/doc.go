// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for atproto packages.
//
// [NewServer] starts a fake PDS: an httptest server that routes
// /xrpc/<method> requests to handlers registered per NSID and answers
// unregistered methods with MethodNotImplemented. Handlers return a
// value to encode as the JSON response, or an [*Error] to send a
// structured XRPC error. The server counts calls per method so tests
// can assert that a failed validation never reached the network.
//
// All helpers call t.Fatalf on setup failure rather than returning
// errors, since test setup failures are not recoverable.
//
// This package depends only on the standard library.
package testutil
