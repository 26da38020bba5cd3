// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clitest holds helpers for testing bsky commands against a
// fake PDS.
package clitest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lib/sessionstore"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// Account is the logged-in identity Login saves.
const (
	DID         = "did:plc:alice"
	Handle      = "alice.test"
	AccessToken = "access"
)

// Login saves a session for service in a fresh directory and returns
// the flags that point a command at it. The config file is explicit
// so a BSKY_CONFIG in the environment is ignored.
func Login(t *testing.T, service string) []string {
	t.Helper()
	directory := t.TempDir()
	configFile := filepath.Join(directory, "config.yaml")
	if err := os.WriteFile(configFile, []byte("log_level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	did, err := syntax.ParseDID(DID)
	if err != nil {
		t.Fatal(err)
	}
	handle, err := syntax.ParseHandle(Handle)
	if err != nil {
		t.Fatal(err)
	}
	sessionFile := filepath.Join(directory, "session.cbor")
	err = sessionstore.New(sessionFile).Save(sessionstore.Entry{
		Service: service,
		Session: atproto.Session{DID: did, Handle: handle, AccessJwt: AccessToken, RefreshJwt: "refresh"},
	})
	if err != nil {
		t.Fatalf("saving session: %v", err)
	}
	return []string{"--config", configFile, "--service", service, "--session-file", sessionFile}
}

// CaptureStdout redirects cli.Stdout for the rest of the test.
func CaptureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	previous := cli.Stdout
	cli.Stdout = &buffer
	t.Cleanup(func() { cli.Stdout = previous })
	return &buffer
}

// Category returns the category of a *cli.ToolError in err's chain,
// or "" when there is none.
func Category(err error) cli.ErrorCategory {
	var toolErr *cli.ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	return ""
}
