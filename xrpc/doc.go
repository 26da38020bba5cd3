// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package xrpc dispatches XRPC calls: HTTP requests to
// "<host>/xrpc/<method>" where method is an NSID.
//
// Queries are GETs with parameters in the query string. Procedures are
// POSTs with a JSON body, or a raw body with the caller's media type
// for blob uploads. A bearer token is attached only when the caller
// supplies one; the dispatcher holds no credentials itself.
//
// Every failure is returned as one of three types:
//
//   - [*TransportError]: the request did not complete (connection,
//     TLS, timeout) or the server answered non-2xx without the
//     structured error body
//   - [*Error]: the server answered non-2xx with {"error", "message"}
//   - [*DecodeError]: the server answered 2xx but the body does not
//     match the expected shape
//
// The dispatcher never retries and never refreshes credentials. Each
// call produces one OpenTelemetry client span and one debug log line.
package xrpc
