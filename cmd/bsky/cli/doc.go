// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the bsky CLI: a tree of
// [Command] values dispatched by name, flags bound from tagged
// parameter structs ([BindFlags]), categorized errors ([ToolError]),
// --json output ([JSONOutput]), and the session wiring every
// PDS-facing command shares ([ClientFlags], [Connection]).
//
// The login, logout, and whoami commands live here because they own
// the session file rather than merely using it.
package cli
