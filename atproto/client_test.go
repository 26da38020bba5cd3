// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/xrpc"
)

func TestNewClient(t *testing.T) {
	for _, service := range []string{"", "bsky.social", "ftp://bsky.social"} {
		if _, err := NewClient(ClientConfig{Service: service}); err == nil {
			t.Errorf("NewClient(%q) succeeded, want error", service)
		}
	}

	client, err := NewClient(ClientConfig{Service: "https://pds.example.com/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Service() != "https://pds.example.com" {
		t.Errorf("Service() = %q, want trailing slash trimmed", client.Service())
	}
	if _, ok := client.Session(); ok {
		t.Error("new client holds a session")
	}
}

func TestLogin(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.newClient(false)

	session, err := client.Login(t.Context(), aliceHandle, alicePassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.DID.String() != aliceDID || session.Handle.String() != aliceHandle {
		t.Errorf("session = %s/%s, want %s/%s", session.DID, session.Handle, aliceDID, aliceHandle)
	}
	held, ok := client.Session()
	if !ok || held.AccessJwt != session.AccessJwt {
		t.Error("Login did not install the session")
	}
	actor, err := client.CurrentActor()
	if err != nil || actor.String() != aliceDID {
		t.Errorf("CurrentActor() = %v, %v", actor, err)
	}

	expiresAt, ok := session.AccessExpiresAt()
	if !ok || !expiresAt.Equal(testEpoch.Add(2*time.Hour)) {
		t.Errorf("AccessExpiresAt() = %v, %v; want %v", expiresAt, ok, testEpoch.Add(2*time.Hour))
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.loggedInClient()
	before, _ := client.Session()

	_, err := client.Login(t.Context(), bobHandle, "wrong")
	if !xrpc.IsError(err, xrpc.ErrKindAuthenticationRequired) {
		t.Fatalf("Login error = %v, want AuthenticationRequired", err)
	}
	var xrpcErr *xrpc.Error
	if errors.As(err, &xrpcErr) && xrpcErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", xrpcErr.StatusCode)
	}
	after, ok := client.Session()
	if !ok || after != before {
		t.Error("failed Login replaced the previous session")
	}
}

func TestRefreshSession(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.loggedInClient()
	before, _ := client.Session()

	refreshed, err := client.RefreshSession(t.Context())
	if err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if refreshed.AccessJwt == before.AccessJwt || refreshed.RefreshJwt == before.RefreshJwt {
		t.Error("RefreshSession did not rotate the tokens")
	}
	if refreshed.DID != before.DID {
		t.Errorf("refreshed DID = %s, want %s", refreshed.DID, before.DID)
	}
	request := pds.lastRequest(methodRefreshSession)
	if request.authorization != "Bearer "+before.RefreshJwt {
		t.Error("refreshSession was not authorized with the refresh token")
	}

	// The server revoked the old refresh token; a client still holding
	// it keeps its session on failure.
	stale := pds.newClient(false)
	if err := stale.ResumeSession(before); err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	if _, err := stale.RefreshSession(t.Context()); !xrpc.IsError(err, xrpc.ErrKindExpiredToken) {
		t.Errorf("refresh with revoked token: err = %v, want ExpiredToken", err)
	}
	if held, ok := stale.Session(); !ok || held != before {
		t.Error("failed refresh changed the session")
	}
}

func TestLogout(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.loggedInClient()

	if err := client.Logout(t.Context()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok := client.Session(); ok {
		t.Error("session still held after Logout")
	}
	if pds.callCount(methodDeleteSession) != 1 {
		t.Errorf("deleteSession calls = %d, want 1", pds.callCount(methodDeleteSession))
	}
	if err := client.Logout(t.Context()); !errors.Is(err, ErrMissingSession) {
		t.Errorf("second Logout error = %v, want ErrMissingSession", err)
	}
}

func TestLogout_ServerFailureStillClears(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.loggedInClient()
	pds.failOn(methodDeleteSession, 1, http.StatusInternalServerError,
		`{"error":"InternalServerError","message":"boom"}`)

	err := client.Logout(t.Context())
	if !xrpc.IsError(err, xrpc.ErrKindInternalServerError) {
		t.Errorf("Logout error = %v, want InternalServerError", err)
	}
	if _, ok := client.Session(); ok {
		t.Error("session still held after failed Logout")
	}
}

func TestResumeSession(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.newClient(false)

	if err := client.ResumeSession(Session{}); err == nil {
		t.Error("ResumeSession accepted an empty session")
	}
	if pds.totalCalls() != 0 {
		t.Errorf("ResumeSession made %d calls", pds.totalCalls())
	}

	source := pds.loggedInClient()
	saved, _ := source.Session()
	if err := client.ResumeSession(saved); err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	info, err := client.GetSession(t.Context())
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if info.DID.String() != aliceDID {
		t.Errorf("GetSession DID = %s, want %s", info.DID, aliceDID)
	}
}

func TestAccessExpired(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.newClient(false)
	if client.AccessExpired() {
		t.Error("AccessExpired() = true without a session")
	}

	client = pds.loggedInClient()
	if client.AccessExpired() {
		t.Error("fresh token reported expired")
	}
	pds.clock.Advance(2*time.Hour - time.Second)
	if client.AccessExpired() {
		t.Error("token reported expired before its exp")
	}
	pds.clock.Advance(time.Second)
	if !client.AccessExpired() {
		t.Error("token not reported expired at its exp")
	}
}

func TestScopedHandlesRequireSession(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.newClient(false)
	ctx := t.Context()

	if _, err := client.Me(); !errors.Is(err, ErrMissingSession) {
		t.Errorf("Me() error = %v, want ErrMissingSession", err)
	}
	if _, err := client.User(bobHandle); !errors.Is(err, ErrMissingSession) {
		t.Errorf("User() error = %v, want ErrMissingSession", err)
	}
	if _, err := client.CurrentActor(); !errors.Is(err, ErrMissingSession) {
		t.Errorf("CurrentActor() error = %v, want ErrMissingSession", err)
	}
	if _, err := client.GetSession(ctx); !errors.Is(err, ErrMissingSession) {
		t.Errorf("GetSession() error = %v, want ErrMissingSession", err)
	}
	if _, err := client.RefreshSession(ctx); !errors.Is(err, ErrMissingSession) {
		t.Errorf("RefreshSession() error = %v, want ErrMissingSession", err)
	}

	repo := syntax.AtIdentifierFromDID(mustDID(t, aliceDID))
	if _, err := client.CreateRecord(ctx, CreateRecordRequest{
		Repo: repo, Collection: testCollection, Record: map[string]any{"$type": testCollection.String()},
	}); !errors.Is(err, ErrMissingSession) {
		t.Errorf("CreateRecord() error = %v, want ErrMissingSession", err)
	}
	if err := client.DeleteRecord(ctx, DeleteRecordRequest{
		Repo: repo, Collection: testCollection, RKey: "self",
	}); !errors.Is(err, ErrMissingSession) {
		t.Errorf("DeleteRecord() error = %v, want ErrMissingSession", err)
	}
	if _, err := client.UploadBlob(ctx, []byte("x"), "text/plain"); !errors.Is(err, ErrMissingSession) {
		t.Errorf("UploadBlob() error = %v, want ErrMissingSession", err)
	}

	if pds.totalCalls() != 0 {
		t.Errorf("session-less calls performed %d requests, want 0", pds.totalCalls())
	}
}

func TestUser_SessionClearedAfterHandle(t *testing.T) {
	clearers := map[string]func(*Client){
		"ClearSession": func(client *Client) { client.ClearSession() },
		"Logout": func(client *Client) {
			if err := client.Logout(t.Context()); err != nil {
				t.Fatalf("Logout failed: %v", err)
			}
		},
	}
	for name, clear := range clearers {
		t.Run(name, func(t *testing.T) {
			pds := newFakePDS(t)
			client := pds.loggedInClient()
			ctx := t.Context()

			byHandle, err := client.User(bobHandle)
			if err != nil {
				t.Fatalf("User(%q) failed: %v", bobHandle, err)
			}
			byDID, err := client.User(bobDID)
			if err != nil {
				t.Fatalf("User(%q) failed: %v", bobDID, err)
			}
			clear(client)
			before := pds.totalCalls()

			calls := map[string]func() error{
				"Profile": func() error { _, err := byHandle.Profile(ctx); return err },
				"ResolveHandle by handle": func() error {
					_, err := byHandle.ResolveHandle(ctx)
					return err
				},
				"ResolveHandle by DID": func() error {
					_, err := byDID.ResolveHandle(ctx)
					return err
				},
				"ListPosts":   func() error { _, err := byHandle.ListPosts(ctx, 10, ""); return err },
				"StreamPosts": func() error { _, err := byHandle.StreamPosts(ctx); return err },
				"UserRecord": func() error {
					_, err := UserRecord[map[string]any](ctx, byDID, testCollection, "self")
					return err
				},
				"UserRecords": func() error {
					_, err := UserRecords[map[string]any](ctx, byDID, testCollection, 10, "")
					return err
				},
				"Follows":    func() error { _, err := byHandle.Follows(ctx, 10, ""); return err },
				"Followers":  func() error { _, err := byHandle.Followers(ctx, 10, ""); return err },
				"AuthorFeed": func() error { _, err := byHandle.AuthorFeed(ctx, 10, ""); return err },
			}
			for call, run := range calls {
				if err := run(); !errors.Is(err, ErrMissingSession) {
					t.Errorf("%s error = %v, want ErrMissingSession", call, err)
				}
			}
			if after := pds.totalCalls(); after != before {
				t.Errorf("calls after the session ended performed %d requests, want 0", after-before)
			}
		})
	}
}

func TestUser_InvalidIdentifier(t *testing.T) {
	pds := newFakePDS(t)
	client := pds.loggedInClient()
	if _, err := client.User("not an identifier"); err == nil {
		t.Error("User accepted an invalid identifier")
	}
}

func TestAutoRefresh(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		pds := newFakePDS(t)
		client := pds.loggedInClient()
		pds.expireAccessTokens()

		_, err := client.GetSession(t.Context())
		if !xrpc.IsError(err, xrpc.ErrKindExpiredToken) {
			t.Fatalf("GetSession error = %v, want ExpiredToken", err)
		}
		if pds.callCount(methodRefreshSession) != 0 {
			t.Error("refreshed without AutoRefresh")
		}
	})

	t.Run("refreshes and retries once", func(t *testing.T) {
		pds := newFakePDS(t)
		client := pds.newClient(true)
		if _, err := client.Login(t.Context(), aliceHandle, alicePassword); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		before, _ := client.Session()
		pds.expireAccessTokens()

		info, err := client.GetSession(t.Context())
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if info.DID.String() != aliceDID {
			t.Errorf("DID = %s, want %s", info.DID, aliceDID)
		}
		if got := pds.callCount(methodRefreshSession); got != 1 {
			t.Errorf("refreshSession calls = %d, want 1", got)
		}
		if got := pds.callCount(methodGetSession); got != 2 {
			t.Errorf("getSession calls = %d, want 2", got)
		}
		after, _ := client.Session()
		if after.AccessJwt == before.AccessJwt {
			t.Error("session was not replaced by the refresh")
		}
	})

	t.Run("gives up after one retry", func(t *testing.T) {
		pds := newFakePDS(t)
		client := pds.newClient(true)
		if _, err := client.Login(t.Context(), aliceHandle, alicePassword); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		pds.mu.Lock()
		pds.expireIssued = true
		pds.mu.Unlock()
		pds.expireAccessTokens()

		_, err := client.GetSession(t.Context())
		if !xrpc.IsError(err, xrpc.ErrKindExpiredToken) {
			t.Fatalf("GetSession error = %v, want ExpiredToken", err)
		}
		if got := pds.callCount(methodRefreshSession); got != 1 {
			t.Errorf("refreshSession calls = %d, want 1", got)
		}
		if got := pds.callCount(methodGetSession); got != 2 {
			t.Errorf("getSession calls = %d, want 2", got)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		pds := newFakePDS(t)
		client := pds.newClient(true)
		if _, err := client.Login(t.Context(), aliceHandle, alicePassword); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		pds.failOn(methodGetSession, 1, http.StatusUnauthorized,
			`{"error":"InvalidToken","message":"bad signature"}`)

		_, err := client.GetSession(t.Context())
		if !xrpc.IsError(err, xrpc.ErrKindInvalidToken) {
			t.Fatalf("GetSession error = %v, want InvalidToken", err)
		}
		if pds.callCount(methodRefreshSession) != 0 || pds.callCount(methodGetSession) != 1 {
			t.Error("a non-expiry failure triggered a refresh")
		}
	})
}

func mustDID(t *testing.T, raw string) syntax.DID {
	t.Helper()
	did, err := syntax.ParseDID(raw)
	if err != nil {
		t.Fatalf("ParseDID(%q): %v", raw, err)
	}
	return did
}
