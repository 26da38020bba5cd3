// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package syntax_test

import (
	"encoding/json"
	"testing"

	"github.com/bureau-foundation/atproto/lib/syntax"
)

func TestParseDID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		method  string
		wantErr bool
	}{
		{name: "plc", raw: "did:plc:ewvi7nxzyoun6zhxrhs64oiz", method: "plc"},
		{name: "web", raw: "did:web:example.com", method: "web"},
		{name: "web-with-port", raw: "did:web:localhost%3A2583", method: "web"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no-prefix", raw: "plc:abc", wantErr: true},
		{name: "uppercase-method", raw: "did:PLC:abc", wantErr: true},
		{name: "no-identifier", raw: "did:plc:", wantErr: true},
		{name: "no-method", raw: "did::abc", wantErr: true},
		{name: "trailing-colon", raw: "did:web:example.com:", wantErr: true},
		{name: "space", raw: "did:plc:ab c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			did, err := syntax.ParseDID(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", did)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if did.String() != tt.raw {
				t.Errorf("String() = %q, want %q", did.String(), tt.raw)
			}
			if did.Method() != tt.method {
				t.Errorf("Method() = %q, want %q", did.Method(), tt.method)
			}
		})
	}
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "simple", raw: "alice.bsky.social", want: "alice.bsky.social"},
		{name: "mixed-case", raw: "Alice.Example.COM", want: "alice.example.com"},
		{name: "hyphen", raw: "my-name.example.org", want: "my-name.example.org"},
		{name: "single-segment", raw: "localhost", wantErr: true},
		{name: "leading-hyphen", raw: "-alice.example.com", wantErr: true},
		{name: "numeric-tld", raw: "alice.example.123", wantErr: true},
		{name: "empty-segment", raw: "alice..com", wantErr: true},
		{name: "underscore", raw: "al_ice.example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, err := syntax.ParseHandle(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", handle)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if handle.String() != tt.want {
				t.Errorf("String() = %q, want %q", handle.String(), tt.want)
			}
		})
	}
}

func TestParseAtIdentifier(t *testing.T) {
	did, err := syntax.ParseAtIdentifier("did:plc:abc123")
	if err != nil {
		t.Fatalf("ParseAtIdentifier(did): %v", err)
	}
	if !did.IsDID() {
		t.Error("IsDID() = false for a DID")
	}

	handle, err := syntax.ParseAtIdentifier("@alice.bsky.social")
	if err != nil {
		t.Fatalf("ParseAtIdentifier(handle): %v", err)
	}
	if handle.IsDID() {
		t.Error("IsDID() = true for a handle")
	}
	if handle.String() != "alice.bsky.social" {
		t.Errorf("String() = %q, want leading @ stripped", handle.String())
	}

	if _, err := syntax.ParseAtIdentifier("not an identifier"); err == nil {
		t.Error("expected error for garbage identifier")
	}
}

func TestParseNSID(t *testing.T) {
	tests := []struct {
		raw     string
		name    string
		wantErr bool
	}{
		{raw: "app.bsky.feed.post", name: "post"},
		{raw: "com.atproto.repo.createRecord", name: "createRecord"},
		{raw: "app.bsky", wantErr: true},
		{raw: "app.bsky.feed.1post", wantErr: true},
		{raw: "app.bsky.feed.po-st", wantErr: true},
		{raw: "1app.bsky.feed.post", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			nsid, err := syntax.ParseNSID(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", nsid)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if nsid.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", nsid.Name(), tt.name)
			}
		})
	}
}

func TestParseRecordKey(t *testing.T) {
	valid := []string{"3l3qo2vuowo2b", "self", "a:b~c.d-e_f"}
	for _, raw := range valid {
		if _, err := syntax.ParseRecordKey(raw); err != nil {
			t.Errorf("ParseRecordKey(%q): %v", raw, err)
		}
	}
	invalid := []string{"", ".", "..", "has/slash", "has space"}
	for _, raw := range invalid {
		if _, err := syntax.ParseRecordKey(raw); err == nil {
			t.Errorf("ParseRecordKey(%q) succeeded, want error", raw)
		}
	}
}

func TestParseATURI(t *testing.T) {
	t.Run("record", func(t *testing.T) {
		raw := "at://did:plc:abc123/app.bsky.feed.post/3l3qo2vuowo2b"
		uri, err := syntax.ParseATURI(raw)
		if err != nil {
			t.Fatalf("ParseATURI: %v", err)
		}
		if uri.Authority().String() != "did:plc:abc123" {
			t.Errorf("Authority() = %q", uri.Authority())
		}
		if uri.Collection().String() != "app.bsky.feed.post" {
			t.Errorf("Collection() = %q", uri.Collection())
		}
		if uri.RecordKey().String() != "3l3qo2vuowo2b" {
			t.Errorf("RecordKey() = %q", uri.RecordKey())
		}
		if uri.String() != raw {
			t.Errorf("String() = %q, want %q", uri.String(), raw)
		}
	})

	t.Run("repository only", func(t *testing.T) {
		uri, err := syntax.ParseATURI("at://alice.bsky.social")
		if err != nil {
			t.Fatalf("ParseATURI: %v", err)
		}
		if !uri.Collection().IsZero() || !uri.RecordKey().IsZero() {
			t.Error("expected zero collection and record key")
		}
	})

	t.Run("invalid", func(t *testing.T) {
		invalid := []string{
			"https://example.com",
			"at://",
			"at://did:plc:abc/app.bsky.feed.post/key/extra",
			"at://did:plc:abc/notansid",
			"at://did:plc:abc/app.bsky.feed.post/key?x=1",
		}
		for _, raw := range invalid {
			if _, err := syntax.ParseATURI(raw); err == nil {
				t.Errorf("ParseATURI(%q) succeeded, want error", raw)
			}
		}
	})

	t.Run("constructed", func(t *testing.T) {
		did, _ := syntax.ParseDID("did:plc:abc123")
		key, _ := syntax.ParseRecordKey("self")
		uri := syntax.NewRecordURI(did, syntax.MustParseNSID("app.bsky.actor.profile"), key)
		if uri.String() != "at://did:plc:abc123/app.bsky.actor.profile/self" {
			t.Errorf("String() = %q", uri.String())
		}
	})
}

func TestTextRoundTripInJSON(t *testing.T) {
	type envelope struct {
		DID    syntax.DID    `json:"did"`
		Handle syntax.Handle `json:"handle,omitempty"`
		URI    syntax.ATURI  `json:"uri"`
	}

	input := `{"did":"did:plc:abc123","handle":"alice.bsky.social","uri":"at://did:plc:abc123/app.bsky.feed.like/xyz"}`
	var decoded envelope
	if err := json.Unmarshal([]byte(input), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(encoded) != input {
		t.Errorf("round trip = %s, want %s", encoded, input)
	}

	var bad envelope
	if err := json.Unmarshal([]byte(`{"did":"nope"}`), &bad); err == nil {
		t.Error("expected error decoding an invalid DID")
	}

	var empty envelope
	if err := json.Unmarshal([]byte(`{"did":""}`), &empty); err != nil {
		t.Fatalf("empty DID should decode to zero value: %v", err)
	}
	if !empty.DID.IsZero() {
		t.Error("expected zero DID")
	}
}
