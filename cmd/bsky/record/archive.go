// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lib/archive"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

type exportParams struct {
	cli.ClientFlags
	Repo        string `flag:"repo" desc:"repository handle or DID (default: your own)"`
	Output      string `flag:"output,o" desc:"archive file to write, or - for stdout" default:"-"`
	Compression string `flag:"compression" desc:"none, zstd, or lz4 (default: from the file extension)"`
}

func exportCommand() *cli.Command {
	var params exportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Export a collection to a record archive",
		Description: `Write every record of a collection to an archive: a header line, one
JSON line per record, and a trailer carrying the record count and a
BLAKE3 digest of the record lines. Files ending in .zst are
zstd-compressed and files ending in .lz4 are lz4-compressed unless
--compression says otherwise.`,
		Usage:  "bsky record export <collection> [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Back up your posts",
				Command:     "bsky record export app.bsky.feed.post -o posts.jsonl.zst",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<collection>"); err != nil {
				return err
			}
			collection, err := syntax.ParseNSID(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			compression, err := archiveCompression(params.Compression, params.Output)
			if err != nil {
				return err
			}

			requirement := cli.SessionOptional
			if params.Repo == "" {
				requirement = cli.SessionRequired
			}
			connection, err := params.Connect(ctx, requirement)
			if err != nil {
				return err
			}
			defer connection.Close()
			repo, err := resolveRepo(connection, params.Repo)
			if err != nil {
				return err
			}

			stream, err := atproto.StreamRecords[json.RawMessage](ctx, connection.Client, repo, collection)
			if err != nil {
				return cli.Classify(err)
			}

			output, finish, err := openOutput(params.Output)
			if err != nil {
				return err
			}
			writer, err := archive.NewWriter(output, compression, archive.Header{
				Repo:       repo.String(),
				Collection: collection.String(),
				ExportedAt: time.Now().UTC(),
			})
			if err != nil {
				finish(false)
				return cli.Internal("%w", err)
			}
			for record, err := range stream.All(ctx) {
				if err != nil {
					writer.Close()
					finish(false)
					return cli.Classify(err)
				}
				if err := writer.Write(record); err != nil {
					writer.Close()
					finish(false)
					return cli.Internal("%w", err)
				}
			}
			if err := writer.Close(); err != nil {
				finish(false)
				return cli.Internal("%w", err)
			}
			if err := finish(true); err != nil {
				return err
			}

			connection.Logger.Info("exported records",
				"collection", collection.String(),
				"repo", repo.String(),
				"count", writer.Count(),
				"blake3", writer.Trailer().Digest,
				"compression", compression.String(),
			)
			return nil
		},
	}
}

type importParams struct {
	cli.ClientFlags
	cli.JSONOutput
	Compression string `flag:"compression" desc:"none, zstd, or lz4 (default: from the file extension)"`
	DryRun      bool   `flag:"dry-run" desc:"read and check the archive without writing"`
}

type importResult struct {
	Repo     string `json:"repo"`
	Imported int    `json:"imported"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

func importCommand() *cli.Command {
	var params importParams
	return &cli.Command{
		Name:    "import",
		Summary: "Write the records of an archive into your repository",
		Description: `Replay a record archive into the logged-in account's repository. Each
record is written with putRecord under its original collection and
record key, so importing the same archive twice leaves one copy.`,
		Usage:  "bsky record import <archive> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<archive>"); err != nil {
				return err
			}
			path := args[0]
			compression, err := archiveCompression(params.Compression, path)
			if err != nil {
				return err
			}

			file, err := os.Open(path)
			if err != nil {
				return cli.Validation("%w", err)
			}
			defer file.Close()
			reader, err := archive.NewReader(file, compression)
			if err != nil {
				return cli.Validation("%s: %w", path, err)
			}
			defer reader.Close()

			connection, err := params.Connect(ctx, cli.SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()
			me, err := connection.Me()
			if err != nil {
				return err
			}

			// Read the whole archive first so that a truncated or
			// corrupted one writes nothing.
			var records []archive.Record
			for {
				record, err := reader.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return cli.Validation("%s: %w", path, err)
				}
				if record.URI.RecordKey().IsZero() {
					return cli.Validation("%s: %s does not address a record", path, record.URI)
				}
				records = append(records, record)
			}

			result := importResult{Repo: me.DID().String(), DryRun: params.DryRun}
			for _, record := range records {
				if !params.DryRun {
					_, err := me.PutRecord(ctx, atproto.PutRecordRequest{
						Collection: record.URI.Collection(),
						RKey:       record.URI.RecordKey().String(),
						Record:     record.Value,
					})
					if err != nil {
						return cli.Classify(fmt.Errorf("importing %s: %w", record.URI, err))
					}
					connection.Logger.Debug("imported record", "uri", record.URI.String())
				}
				result.Imported++
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			verb := "imported"
			if params.DryRun {
				verb = "would import"
			}
			fmt.Fprintf(cli.Stdout, "%s %d records into %s\n", verb, result.Imported, result.Repo)
			return nil
		},
	}
}

// archiveCompression returns the explicit --compression value, or the
// compression implied by path's extension.
func archiveCompression(flag, path string) (archive.Compression, error) {
	if flag == "" {
		return archive.CompressionForPath(path), nil
	}
	compression, err := archive.ParseCompression(flag)
	if err != nil {
		return 0, cli.Validation("--compression: %w", err)
	}
	return compression, nil
}

// openOutput opens path for writing, or cli.Stdout for "-". The file
// is written through a temporary sibling; finish(true) renames it into
// place and finish(false) discards it.
func openOutput(path string) (io.Writer, func(keep bool) error, error) {
	if path == "-" || path == "" {
		return cli.Stdout, func(bool) error { return nil }, nil
	}
	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, cli.Validation("%w", err)
	}
	finish := func(keep bool) error {
		closeErr := file.Close()
		if !keep {
			os.Remove(temporaryPath)
			return nil
		}
		if closeErr != nil {
			os.Remove(temporaryPath)
			return cli.Internal("writing %s: %w", path, closeErr)
		}
		if err := os.Rename(temporaryPath, path); err != nil {
			os.Remove(temporaryPath)
			return cli.Internal("%w", err)
		}
		return nil
	}
	return file, finish, nil
}
