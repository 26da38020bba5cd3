// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive reads and writes record archives: a JSON header line
// followed by one JSON line per record (URI, CID, and raw value), and
// a trailer line holding the record count and a keyed BLAKE3 digest of
// the record lines. The whole stream may be zstd or lz4 compressed.
//
// [Reader] checks the trailer when it reaches it; an archive that ends
// without one reports [ErrTruncated], and a count or digest that does
// not match the records read is an error.
//
// Archives are what "bsky record export" writes and "bsky record
// import" replays. Values are kept as raw JSON, so records of any
// collection survive the round trip byte for byte.
package archive
