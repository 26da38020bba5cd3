// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/lib/sessionstore"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

const (
	testDID    = "did:plc:alice"
	testHandle = "alice.test"
)

// testPDS serves the session endpoints. Tokens are opaque strings; the
// refresh counter makes each rotation distinguishable.
type testPDS struct {
	server *httptest.Server

	mu         sync.Mutex
	access     string
	refresh    string
	refreshes  int
	revoked    bool
	failDelete bool
}

func newTestPDS(t *testing.T) *testPDS {
	t.Helper()
	pds := &testPDS{access: "access-0", refresh: "refresh-0"}
	pds.server = httptest.NewServer(http.HandlerFunc(pds.serveHTTP))
	t.Cleanup(pds.server.Close)
	return pds
}

func (pds *testPDS) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	pds.mu.Lock()
	defer pds.mu.Unlock()

	bearer := strings.TrimPrefix(request.Header.Get("Authorization"), "Bearer ")
	writeError := func(status int, kind string) {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(status)
		json.NewEncoder(writer).Encode(map[string]string{"error": kind, "message": kind})
	}
	writeSession := func() {
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]string{
			"did":        testDID,
			"handle":     testHandle,
			"accessJwt":  pds.access,
			"refreshJwt": pds.refresh,
		})
	}

	switch strings.TrimPrefix(request.URL.Path, "/xrpc/") {
	case "com.atproto.server.createSession":
		var input struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		json.NewDecoder(request.Body).Decode(&input)
		if input.Identifier != testHandle || input.Password != "app-password" {
			writeError(http.StatusUnauthorized, "AuthenticationRequired")
			return
		}
		writeSession()
	case "com.atproto.server.getSession":
		if pds.revoked || bearer != pds.access {
			writeError(http.StatusBadRequest, "InvalidToken")
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]string{"did": testDID, "handle": testHandle})
	case "com.atproto.server.refreshSession":
		if bearer != pds.refresh {
			writeError(http.StatusBadRequest, "ExpiredToken")
			return
		}
		pds.refreshes++
		pds.access = "access-" + string(rune('0'+pds.refreshes))
		pds.refresh = "refresh-" + string(rune('0'+pds.refreshes))
		writeSession()
	case "com.atproto.server.deleteSession":
		if pds.failDelete {
			writeError(http.StatusInternalServerError, "InternalServerError")
			return
		}
		pds.revoked = true
		writer.WriteHeader(http.StatusOK)
	default:
		writeError(http.StatusNotImplemented, "MethodNotImplemented")
	}
}

// clientFlags points a ClientFlags at the test PDS and a fresh session
// file, with a config file so the environment's BSKY_CONFIG is ignored.
func (pds *testPDS) clientFlags(t *testing.T) ClientFlags {
	t.Helper()
	directory := t.TempDir()
	configFile := filepath.Join(directory, "config.yaml")
	if err := os.WriteFile(configFile, []byte("log_level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return ClientFlags{
		ConfigFile:  configFile,
		Service:     pds.server.URL,
		SessionFile: filepath.Join(directory, "session.cbor"),
	}
}

func (pds *testPDS) saveSession(t *testing.T, flags ClientFlags, service string) {
	t.Helper()
	did, err := syntax.ParseDID(testDID)
	if err != nil {
		t.Fatal(err)
	}
	handle, err := syntax.ParseHandle(testHandle)
	if err != nil {
		t.Fatal(err)
	}
	pds.mu.Lock()
	session := atproto.Session{
		DID:        did,
		Handle:     handle,
		AccessJwt:  pds.access,
		RefreshJwt: pds.refresh,
	}
	pds.mu.Unlock()
	err = sessionstore.New(flags.SessionFile).Save(sessionstore.Entry{Service: service, Session: session})
	if err != nil {
		t.Fatalf("saving session: %v", err)
	}
}

// captureStdout redirects command output for the rest of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	previous := Stdout
	Stdout = &buffer
	t.Cleanup(func() { Stdout = previous })
	return &buffer
}

func categoryOfError(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	return ""
}

func TestConnect_NoSavedSession(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)

	_, err := flags.Connect(context.Background(), SessionRequired)
	if categoryOfError(err) != CategoryAuth {
		t.Errorf("Connect(SessionRequired) = %v, want an auth error", err)
	}

	connection, err := flags.Connect(context.Background(), SessionOptional)
	if err != nil {
		t.Fatalf("Connect(SessionOptional) error: %v", err)
	}
	if _, ok := connection.Client.Session(); ok {
		t.Error("anonymous connection holds a session")
	}
	if connection.Client.Service() != pds.server.URL {
		t.Errorf("Service() = %q, want %q", connection.Client.Service(), pds.server.URL)
	}
}

func TestConnect_SessionForAnotherService(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)
	pds.saveSession(t, flags, "https://elsewhere.example.com")

	_, err := flags.Connect(context.Background(), SessionRequired)
	if categoryOfError(err) != CategoryAuth {
		t.Errorf("Connect(SessionRequired) = %v, want an auth error", err)
	}
	if err != nil && !strings.Contains(err.Error(), "elsewhere.example.com") {
		t.Errorf("error %q should name the saved service", err)
	}

	connection, err := flags.Connect(context.Background(), SessionOptional)
	if err != nil {
		t.Fatalf("Connect(SessionOptional) error: %v", err)
	}
	if _, ok := connection.Client.Session(); ok {
		t.Error("a session for another service was resumed")
	}
}

func TestConnect_InvalidConfiguration(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)
	flags.Service = "ftp://pds.example.com"

	_, err := flags.Connect(context.Background(), SessionOptional)
	if categoryOfError(err) != CategoryValidation {
		t.Errorf("Connect() = %v, want a validation error", err)
	}
}

func TestConnection_CloseSavesRotatedSession(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)
	pds.saveSession(t, flags, pds.server.URL)

	connection, err := flags.Connect(context.Background(), SessionRequired)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := connection.Close(); err != nil {
		t.Fatalf("Close() without changes: %v", err)
	}

	if _, err := connection.Client.RefreshSession(context.Background()); err != nil {
		t.Fatalf("RefreshSession() error: %v", err)
	}
	if err := connection.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	entry, err := sessionstore.New(flags.SessionFile).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if entry.Session.RefreshJwt != "refresh-1" || entry.Session.AccessJwt != "access-1" {
		t.Errorf("saved tokens = %q/%q, want the rotated pair", entry.Session.AccessJwt, entry.Session.RefreshJwt)
	}
}

func TestLoginCommand(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)

	passwordFile := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(passwordFile, []byte("app-password\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	args := []string{
		"--config", flags.ConfigFile,
		"--service", flags.Service,
		"--session-file", flags.SessionFile,
		"--password-file", passwordFile,
		testHandle,
	}
	if err := LoginCommand().Execute(args); err != nil {
		t.Fatalf("login: %v", err)
	}

	entry, err := sessionstore.New(flags.SessionFile).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if entry.Service != pds.server.URL {
		t.Errorf("saved service = %q, want %q", entry.Service, pds.server.URL)
	}
	if entry.Session.DID.String() != testDID || entry.Session.AccessJwt != "access-0" {
		t.Errorf("saved session = %+v", entry.Session)
	}

	t.Run("wrong password", func(t *testing.T) {
		if err := os.WriteFile(passwordFile, []byte("guess\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		err := LoginCommand().Execute(args)
		if categoryOfError(err) != CategoryAuth {
			t.Errorf("login = %v, want an auth error", err)
		}
	})
}

func TestLoginCommand_EncryptedSession(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)
	identityFile := filepath.Join(filepath.Dir(flags.SessionFile), "session.key")
	config := "log_level: error\nsession_identity_file: " + identityFile + "\n"
	if err := os.WriteFile(flags.ConfigFile, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}
	passwordFile := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(passwordFile, []byte("app-password\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := LoginCommand().Execute([]string{
		"--config", flags.ConfigFile,
		"--service", flags.Service,
		"--session-file", flags.SessionFile,
		"--password-file", passwordFile,
		testHandle,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := sessionstore.New(flags.SessionFile).Load(); err == nil {
		t.Error("session file readable without the identity")
	}
	identity, err := sessionstore.LoadIdentity(identityFile)
	if err != nil {
		t.Fatalf("identity file not created: %v", err)
	}
	entry, err := sessionstore.NewEncrypted(flags.SessionFile, identity).Load()
	if err != nil {
		t.Fatalf("Load() with identity: %v", err)
	}
	if entry.Session.DID.String() != testDID {
		t.Errorf("saved DID = %s, want %s", entry.Session.DID, testDID)
	}
}

func TestWhoAmICommand(t *testing.T) {
	pds := newTestPDS(t)
	flags := pds.clientFlags(t)
	pds.saveSession(t, flags, pds.server.URL)
	args := []string{
		"--config", flags.ConfigFile,
		"--service", flags.Service,
		"--session-file", flags.SessionFile,
		"--json", "--verify",
	}

	stdout := captureStdout(t)
	if err := WhoAmICommand().Execute(args); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	var output whoamiOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		t.Fatalf("decoding output %q: %v", stdout.String(), err)
	}
	if output.DID != testDID || output.Handle != testHandle || output.Status != "valid" {
		t.Errorf("output = %+v", output)
	}
	if output.AccessExpires != nil {
		t.Errorf("AccessExpires = %v for an opaque token", output.AccessExpires)
	}

	t.Run("revoked", func(t *testing.T) {
		pds.mu.Lock()
		pds.revoked = true
		pds.mu.Unlock()
		stdout.Reset()

		err := WhoAmICommand().Execute(args)
		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != 1 {
			t.Fatalf("whoami = %v, want exit code 1", err)
		}
		if !strings.Contains(stdout.String(), "invalid") {
			t.Errorf("output %q should report the session invalid", stdout.String())
		}
	})
}

func TestLogoutCommand(t *testing.T) {
	t.Run("revokes and removes", func(t *testing.T) {
		pds := newTestPDS(t)
		flags := pds.clientFlags(t)
		pds.saveSession(t, flags, pds.server.URL)

		err := LogoutCommand().Execute([]string{
			"--config", flags.ConfigFile,
			"--service", flags.Service,
			"--session-file", flags.SessionFile,
		})
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		pds.mu.Lock()
		revoked := pds.revoked
		pds.mu.Unlock()
		if !revoked {
			t.Error("session was not revoked on the server")
		}
		if _, err := sessionstore.New(flags.SessionFile).Load(); !errors.Is(err, sessionstore.ErrNoSession) {
			t.Errorf("Load() after logout = %v, want ErrNoSession", err)
		}
	})

	t.Run("server failure still removes the file", func(t *testing.T) {
		pds := newTestPDS(t)
		pds.failDelete = true
		flags := pds.clientFlags(t)
		pds.saveSession(t, flags, pds.server.URL)

		err := LogoutCommand().Execute([]string{
			"--config", flags.ConfigFile,
			"--service", flags.Service,
			"--session-file", flags.SessionFile,
		})
		if categoryOfError(err) != CategoryTransient {
			t.Errorf("logout = %v, want a transient error", err)
		}
		if _, err := sessionstore.New(flags.SessionFile).Load(); !errors.Is(err, sessionstore.ErrNoSession) {
			t.Errorf("Load() after logout = %v, want ErrNoSession", err)
		}
	})
}
