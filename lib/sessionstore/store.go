// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/lib/codec"
)

// ErrNoSession is returned by Load when no session file exists.
var ErrNoSession = errors.New("sessionstore: no saved session")

// Entry is the persisted form of a session.
type Entry struct {
	// Service is the PDS base URL the session belongs to.
	Service string          `cbor:"service"`
	Session atproto.Session `cbor:"session"`
	SavedAt time.Time       `cbor:"saved_at"`
}

// ageHeader starts every file produced by age.Encrypt.
const ageHeader = "age-encryption.org/v1"

// Store reads and writes the session file at a fixed path.
type Store struct {
	path     string
	identity *age.X25519Identity
}

// New returns a Store for the file at path. Nothing is touched on disk
// until Load, Save, or Remove.
func New(path string) *Store {
	return &Store{path: path}
}

// NewEncrypted returns a Store whose file is age-encrypted to
// identity's recipient. Load refuses a plaintext file.
func NewEncrypted(path string, identity *age.X25519Identity) *Store {
	return &Store{path: path, identity: identity}
}

// Encrypted reports whether the store seals the session file.
func (s *Store) Encrypted() bool {
	return s.identity != nil
}

// Path returns the session file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// lock takes an advisory flock of the given kind (unix.LOCK_SH or
// unix.LOCK_EX) and returns the function releasing it.
func (s *Store) lock(how int) (func(), error) {
	file, err := os.OpenFile(s.lockPath(), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: opening lock file: %w", err)
	}
	for {
		err = unix.Flock(int(file.Fd()), how)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("sessionstore: locking %s: %w", s.lockPath(), err)
	}
	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}

// Load reads the saved session. It returns ErrNoSession when the file
// does not exist.
func (s *Store) Load() (Entry, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, ErrNoSession
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sessionstore: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return Entry{}, fmt.Errorf("sessionstore: %s has mode %04o, must not be accessible by group or other", s.path, mode)
	}

	unlock, err := s.lock(unix.LOCK_SH)
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		// Removed between the stat and the lock.
		return Entry{}, ErrNoSession
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sessionstore: %w", err)
	}

	data, err = s.open(data)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	if err := codec.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("sessionstore: parsing %s: %w", s.path, err)
	}
	if err := entry.Session.Validate(); err != nil {
		return Entry{}, fmt.Errorf("sessionstore: %s: %w", s.path, err)
	}
	return entry, nil
}

// Save atomically replaces the session file with entry, creating the
// parent directory (mode 0700) if needed. A zero SavedAt is set to the
// current time.
func (s *Store) Save(entry Entry) error {
	if err := entry.Session.Validate(); err != nil {
		return fmt.Errorf("sessionstore: refusing to save: %w", err)
	}
	if entry.SavedAt.IsZero() {
		entry.SavedAt = time.Now().UTC()
	}
	data, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("sessionstore: encoding session: %w", err)
	}
	data, err = s.seal(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("sessionstore: creating directory: %w", err)
	}
	unlock, err := s.lock(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	temporaryPath := s.path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("sessionstore: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("sessionstore: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("sessionstore: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("sessionstore: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("sessionstore: renaming session file into place: %w", err)
	}
	return nil
}

// seal encrypts plaintext when the store has an identity.
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	if s.identity == nil {
		return plaintext, nil
	}
	var buffer bytes.Buffer
	writer, err := age.Encrypt(&buffer, s.identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("sessionstore: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sessionstore: encrypting session: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sessionstore: finalizing encryption: %w", err)
	}
	return buffer.Bytes(), nil
}

// open reverses seal, rejecting a file whose encryption does not
// match the store's configuration.
func (s *Store) open(data []byte) ([]byte, error) {
	sealed := bytes.HasPrefix(data, []byte(ageHeader))
	switch {
	case s.identity == nil && sealed:
		return nil, fmt.Errorf("sessionstore: %s is encrypted but no identity file is configured", s.path)
	case s.identity == nil:
		return data, nil
	case !sealed:
		return nil, fmt.Errorf("sessionstore: %s is not encrypted; log in again to replace it", s.path)
	}
	reader, err := age.Decrypt(bytes.NewReader(data), s.identity)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: decrypting %s: %w", s.path, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: reading decrypted %s: %w", s.path, err)
	}
	return plaintext, nil
}

// Remove deletes the session file. A missing file is not an error.
func (s *Store) Remove() error {
	unlock, err := s.lock(unix.LOCK_EX)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The directory is gone, so the session is too.
			return nil
		}
		return err
	}
	defer unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("sessionstore: %w", err)
	}
	return nil
}
