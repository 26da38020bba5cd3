// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/atproto/lexicon"
)

// Format is the header format tag this package writes and accepts.
const Format = "bsky-records/1"

// Record is one archived record. The value is kept as raw JSON so any
// collection round-trips unchanged.
type Record = lexicon.Record[json.RawMessage]

// Header is the first line of an archive.
type Header struct {
	Format     string    `json:"format"`
	Repo       string    `json:"repo"`
	Collection string    `json:"collection"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Trailer is the last line of an archive. It lets a reader tell a
// complete archive from a truncated one.
type Trailer struct {
	Count int `json:"count"`
	// Digest is the hex BLAKE3 hash of the record lines, keyed with
	// digestKey, in archive order and without their newlines.
	Digest string `json:"blake3"`
}

// trailerLine wraps the trailer so that it cannot be mistaken for a
// record.
type trailerLine struct {
	Trailer *Trailer `json:"trailer"`
}

// digestKey separates archive digests from any other BLAKE3 use of
// the same bytes: the ASCII domain name, zero-padded to 32 bytes.
var digestKey = [32]byte{
	'b', 's', 'k', 'y', '.', 'a', 'r', 'c', 'h', 'i', 'v', 'e', '.',
	'r', 'e', 'c', 'o', 'r', 'd', 's',
}

func newDigest() *blake3.Hasher {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("archive: blake3 rejected a 32-byte key: " + err.Error())
	}
	return hasher
}

// Writer appends records to an archive.
type Writer struct {
	compressed io.WriteCloser
	encoder    *json.Encoder
	line       bytes.Buffer
	digest     *blake3.Hasher
	count      int
	closed     bool
}

// NewWriter writes header to w and returns a Writer for the records
// that follow. header.Format is filled in.
func NewWriter(w io.Writer, compression Compression, header Header) (*Writer, error) {
	compressed, err := compressor(w, compression)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	encoder := json.NewEncoder(compressed)
	encoder.SetEscapeHTML(false)
	header.Format = Format
	if err := encoder.Encode(header); err != nil {
		compressed.Close()
		return nil, fmt.Errorf("archive: writing header: %w", err)
	}
	writer := &Writer{compressed: compressed, digest: newDigest()}
	writer.encoder = json.NewEncoder(&writer.line)
	writer.encoder.SetEscapeHTML(false)
	return writer, nil
}

// Write appends one record.
func (w *Writer) Write(record Record) error {
	if w.closed {
		return fmt.Errorf("archive: write after close")
	}
	if record.URI.IsZero() {
		return fmt.Errorf("archive: record has no URI")
	}
	w.line.Reset()
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("archive: encoding %s: %w", record.URI, err)
	}
	w.digest.Write(bytes.TrimSuffix(w.line.Bytes(), []byte("\n")))
	if _, err := w.compressed.Write(w.line.Bytes()); err != nil {
		return fmt.Errorf("archive: writing %s: %w", record.URI, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Trailer returns the trailer Close writes, or has written.
func (w *Writer) Trailer() Trailer {
	return Trailer{Count: w.count, Digest: hex.EncodeToString(w.digest.Sum(nil))}
}

// Close writes the trailer and flushes the compressed stream. The
// underlying writer is not closed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	trailer := w.Trailer()
	w.line.Reset()
	if err := w.encoder.Encode(trailerLine{Trailer: &trailer}); err != nil {
		w.compressed.Close()
		return fmt.Errorf("archive: encoding trailer: %w", err)
	}
	if _, err := w.compressed.Write(w.line.Bytes()); err != nil {
		w.compressed.Close()
		return fmt.Errorf("archive: writing trailer: %w", err)
	}
	if err := w.compressed.Close(); err != nil {
		return fmt.Errorf("archive: finishing stream: %w", err)
	}
	return nil
}

// ErrTruncated reports an archive that ends before its trailer.
var ErrTruncated = errors.New("archive: truncated (no trailer)")

// Reader reads records back from an archive.
type Reader struct {
	decompressed io.ReadCloser
	decoder      *json.Decoder
	header       Header
	digest       *blake3.Hasher
	line         int
	done         bool
}

// NewReader reads and checks the archive header.
func NewReader(r io.Reader, compression Compression) (*Reader, error) {
	decompressed, err := decompressor(r, compression)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	reader := &Reader{decompressed: decompressed, decoder: json.NewDecoder(decompressed), digest: newDigest(), line: 1}
	if err := reader.decoder.Decode(&reader.header); err != nil {
		decompressed.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("archive: empty archive")
		}
		return nil, fmt.Errorf("archive: reading header: %w", err)
	}
	if reader.header.Format != Format {
		decompressed.Close()
		return nil, fmt.Errorf("archive: unsupported format %q (want %q)", reader.header.Format, Format)
	}
	return reader, nil
}

// Header returns the archive header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF after the last one. The
// trailer is checked before io.EOF is returned: an archive that stops
// early fails with ErrTruncated, and one whose records do not match
// the trailer's count or digest fails too.
func (r *Reader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}
	var raw json.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, ErrTruncated
		}
		return Record{}, fmt.Errorf("archive: record %d: %w", r.line, err)
	}

	var trailer trailerLine
	if err := json.Unmarshal(raw, &trailer); err == nil && trailer.Trailer != nil {
		if err := r.checkTrailer(*trailer.Trailer); err != nil {
			return Record{}, err
		}
		r.done = true
		return Record{}, io.EOF
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("archive: record %d: %w", r.line, err)
	}
	if record.URI.IsZero() {
		return Record{}, fmt.Errorf("archive: record %d has no URI", r.line)
	}
	r.digest.Write(raw)
	r.line++
	return record, nil
}

func (r *Reader) checkTrailer(trailer Trailer) error {
	if read := r.line - 1; trailer.Count != read {
		return fmt.Errorf("archive: trailer counts %d records, read %d", trailer.Count, read)
	}
	if digest := hex.EncodeToString(r.digest.Sum(nil)); trailer.Digest != digest {
		return fmt.Errorf("archive: record digest mismatch: trailer has %s, records hash to %s", trailer.Digest, digest)
	}
	// Anything after the trailer is not part of the archive.
	if r.decoder.More() {
		return fmt.Errorf("archive: data after trailer")
	}
	return nil
}

// Close releases the decompressor. The underlying reader is not
// closed.
func (r *Reader) Close() error {
	return r.decompressed.Close()
}
