// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionstore persists one atproto session on disk so that
// separate invocations of the bsky CLI share a login.
//
// The file holds a CBOR-encoded [Entry]: the PDS service URL, the
// session tokens, and when they were saved. It is written atomically
// (temporary file, fsync, rename) with mode 0600, and every access
// holds an advisory flock on a sibling ".lock" file so that a refresh
// in one process cannot interleave with a read in another. Load
// refuses files readable by group or other, since the refresh token
// is a long-lived credential.
//
// [NewEncrypted] additionally seals the file with age to an X25519
// identity kept in a separate key file ([LoadOrCreateIdentity]), so a
// copied session file is useless without the key.
package sessionstore
