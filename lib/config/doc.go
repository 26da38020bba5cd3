// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the bsky CLI and
// any program that builds an atproto client from a file.
//
// Configuration has three layers, applied in order:
//
//  1. [Default] -- the public bsky.social service, a 30s timeout, and
//     a session file under the XDG config directory
//  2. a YAML file, selected by --config or BSKY_CONFIG
//  3. environment overrides (BSKY_SERVICE, BSKY_TIMEOUT,
//     BSKY_SESSION_FILE, BSKY_SESSION_IDENTITY_FILE, BSKY_LOG_LEVEL,
//     BSKY_AUTO_REFRESH, BSKY_TRACE_ENDPOINT)
//
// A missing file is an error only when a path was given explicitly.
// ${HOME} and ${VAR:-default} patterns in session_file are expanded
// after all layers are applied.
//
// Key exports:
//
//   - [Config] -- service, timeout, session_file,
//     session_identity_file, log_level, auto_refresh, user_agent,
//     trace_endpoint
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every invalid field at once
//
// This package depends on no other packages in this module.
package config
