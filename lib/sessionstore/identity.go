// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"
)

// LoadIdentity reads an age X25519 identity from path. The file uses
// the age-keygen layout: "#" comment lines and one AGE-SECRET-KEY-1
// line. Like the session file, it must not be readable by group or
// other.
func LoadIdentity(path string) (*age.X25519Identity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: identity file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("sessionstore: identity file %s has mode %04o, must not be accessible by group or other", path, mode)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: identity file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identity, err := age.ParseX25519Identity(line)
		if err != nil {
			return nil, fmt.Errorf("sessionstore: identity file %s: %w", path, err)
		}
		return identity, nil
	}
	return nil, fmt.Errorf("sessionstore: identity file %s contains no key", path)
}

// LoadOrCreateIdentity reads the identity at path, generating and
// writing a new one (mode 0600) if the file does not exist.
func LoadOrCreateIdentity(path string) (*age.X25519Identity, error) {
	identity, err := LoadIdentity(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return identity, err
	}

	identity, err = age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sessionstore: generating identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("sessionstore: creating directory: %w", err)
	}
	contents := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
		time.Now().UTC().Format(time.RFC3339), identity.Recipient(), identity)
	// O_EXCL so two concurrent logins cannot each write a different key.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, os.ErrExist) {
		return LoadIdentity(path)
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore: creating identity file: %w", err)
	}
	if _, err := file.WriteString(contents); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("sessionstore: writing identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("sessionstore: closing identity file: %w", err)
	}
	return identity, nil
}
