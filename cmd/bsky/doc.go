// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bsky is a command-line client for AT Protocol services built on the
// atproto package. It provides subcommands for session management
// (login, logout, whoami), app.bsky social operations (post, thread,
// profile, feed, like, follow, notification), and generic repository
// access (record, upload, resolve).
//
// Exit codes follow the error category: 2 for invalid input, 3 for
// authentication problems, 4 when something does not exist, 5 for a
// failed swap precondition, and 6 for transient failures.
package main
