// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record implements "bsky record" (generic repository record
// operations on any collection, plus archive export and import) and
// "bsky upload".
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// Command returns the "record" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "record",
		Summary: "Operate on repository records of any collection",
		Description: `Operate on records of any collection in a repository.

Record values are read from a JSON file (comments and trailing commas
allowed) or from stdin with --file -. A missing "$type" is filled in
from the collection.`,
		Subcommands: []*cli.Command{
			createCommand(),
			getCommand(),
			putCommand(),
			deleteCommand(),
			listCommand(),
			exportCommand(),
			importCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create a post from a file",
				Command:     "bsky record create app.bsky.feed.post --file post.jsonc",
			},
			{
				Description: "Read a record as JSON",
				Command:     "bsky record get at://did:plc:abc/app.bsky.feed.post/3kxyz",
			},
			{
				Description: "List every like in your repository",
				Command:     "bsky record list app.bsky.feed.like --all",
			},
			{
				Description: "Copy your likes into a compressed archive",
				Command:     "bsky record export app.bsky.feed.like -o likes.jsonl.zst",
			},
		},
	}
}

// parseRecordURI parses an AT-URI that must address a single record.
func parseRecordURI(raw string) (syntax.ATURI, error) {
	uri, err := syntax.ParseATURI(raw)
	if err != nil {
		return syntax.ATURI{}, cli.Validation("%w", err)
	}
	if uri.Collection().IsZero() || uri.RecordKey().IsZero() {
		return syntax.ATURI{}, cli.Validation("%s does not address a record (want at://<repo>/<collection>/<rkey>)", raw)
	}
	return uri, nil
}

// readRecordFile reads a record value from path ("-" for stdin). The
// input may be JSONC. The value must be an object; its "$type" is set
// to collection when absent and must match it when present.
func readRecordFile(path string, collection syntax.NSID) (map[string]any, error) {
	if path == "" {
		return nil, cli.Validation("--file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, cli.Validation("reading record: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var value map[string]any
	if err := decoder.Decode(&value); err != nil {
		return nil, cli.Validation("parsing record %s: %w", path, err)
	}
	if value == nil {
		return nil, cli.Validation("record %s must be a JSON object", path)
	}

	switch recordType := value["$type"].(type) {
	case nil:
		value["$type"] = collection.String()
	case string:
		if recordType != collection.String() {
			return nil, cli.Validation("record $type %q does not match collection %s", recordType, collection)
		}
	default:
		return nil, cli.Validation("record $type must be a string")
	}
	return value, nil
}

type createParams struct {
	cli.ClientFlags
	cli.JSONOutput
	File       string `flag:"file,f" desc:"record JSON file, or - for stdin"`
	RKey       string `flag:"rkey" desc:"record key (default: server-assigned)"`
	SwapCommit string `flag:"swap-commit" desc:"only write if the repository is at this commit CID"`
}

func createCommand() *cli.Command {
	var params createParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create a record in your repository",
		Usage:   "bsky record create <collection> --file <path> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<collection>"); err != nil {
				return err
			}
			collection, err := syntax.ParseNSID(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			value, err := readRecordFile(params.File, collection)
			if err != nil {
				return err
			}

			connection, err := params.Connect(ctx, cli.SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()
			me, err := connection.Me()
			if err != nil {
				return err
			}

			ref, err := me.CreateRecord(ctx, atproto.CreateRecordRequest{
				Collection: collection,
				Record:     value,
				RKey:       params.RKey,
				SwapCommit: params.SwapCommit,
			})
			if err != nil {
				return cli.Classify(err)
			}
			return printRef(&params.JSONOutput, ref)
		},
	}
}

type putParams struct {
	cli.ClientFlags
	cli.JSONOutput
	File       string `flag:"file,f" desc:"record JSON file, or - for stdin"`
	SwapRecord string `flag:"swap-record" desc:"only write if the record currently has this CID"`
	SwapCommit string `flag:"swap-commit" desc:"only write if the repository is at this commit CID"`
}

func putCommand() *cli.Command {
	var params putParams
	return &cli.Command{
		Name:    "put",
		Summary: "Create or replace the record at an AT-URI",
		Description: `Create or replace the record at an AT-URI in your repository.

With --swap-record the write only succeeds if the record's current CID
matches, which guards a read-modify-write against concurrent edits.`,
		Usage:  "bsky record put <at-uri> --file <path> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<at-uri>"); err != nil {
				return err
			}
			uri, err := parseRecordURI(args[0])
			if err != nil {
				return err
			}
			value, err := readRecordFile(params.File, uri.Collection())
			if err != nil {
				return err
			}

			connection, err := params.Connect(ctx, cli.SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()

			ref, err := connection.Client.PutRecord(ctx, atproto.PutRecordRequest{
				Repo:       uri.Authority(),
				Collection: uri.Collection(),
				RKey:       uri.RecordKey().String(),
				Record:     value,
				SwapRecord: params.SwapRecord,
				SwapCommit: params.SwapCommit,
			})
			if err != nil {
				return cli.Classify(err)
			}
			return printRef(&params.JSONOutput, ref)
		},
	}
}

func printRef(output *cli.JSONOutput, ref lexicon.RecordRef) error {
	if done, err := output.EmitJSON(ref); done {
		return err
	}
	fmt.Fprintf(cli.Stdout, "%s\n%s\n", ref.URI, ref.CID)
	return nil
}

type getParams struct {
	cli.ClientFlags
	ValueOnly bool `flag:"value" desc:"print only the record value"`
}

func getCommand() *cli.Command {
	var params getParams
	return &cli.Command{
		Name:    "get",
		Summary: "Fetch a record by AT-URI",
		Description: `Fetch a record and print it as JSON: its URI, CID, and value.

No session is needed for public records; a saved session is used if
present.`,
		Usage:  "bsky record get <at-uri> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<at-uri>"); err != nil {
				return err
			}
			uri, err := parseRecordURI(args[0])
			if err != nil {
				return err
			}
			connection, err := params.Connect(ctx, cli.SessionOptional)
			if err != nil {
				return err
			}
			defer connection.Close()

			record, err := atproto.GetRecord[json.RawMessage](ctx, connection.Client,
				uri.Authority(), uri.Collection(), uri.RecordKey().String())
			if err != nil {
				return cli.Classify(err)
			}
			if params.ValueOnly {
				return cli.WriteJSON(record.Value)
			}
			return cli.WriteJSON(record)
		},
	}
}

type deleteParams struct {
	cli.ClientFlags
	SwapRecord string `flag:"swap-record" desc:"only delete if the record currently has this CID"`
	SwapCommit string `flag:"swap-commit" desc:"only delete if the repository is at this commit CID"`
}

func deleteCommand() *cli.Command {
	var params deleteParams
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete the record at an AT-URI",
		Usage:   "bsky record delete <at-uri> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<at-uri>"); err != nil {
				return err
			}
			uri, err := parseRecordURI(args[0])
			if err != nil {
				return err
			}
			connection, err := params.Connect(ctx, cli.SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()

			err = connection.Client.DeleteRecord(ctx, atproto.DeleteRecordRequest{
				Repo:       uri.Authority(),
				Collection: uri.Collection(),
				RKey:       uri.RecordKey().String(),
				SwapRecord: params.SwapRecord,
				SwapCommit: params.SwapCommit,
			})
			if err != nil {
				return cli.Classify(err)
			}
			fmt.Fprintf(cli.Stdout, "deleted %s\n", uri)
			return nil
		},
	}
}

type listParams struct {
	cli.ClientFlags
	cli.JSONOutput
	Repo    string `flag:"repo" desc:"handle or DID of the repository (default: your own)"`
	Limit   int    `flag:"limit,n" desc:"records per page, 1-100" default:"50"`
	Cursor  string `flag:"cursor" desc:"resume from a cursor printed by a previous page"`
	All     bool   `flag:"all" desc:"follow cursors until the collection is exhausted"`
	Reverse bool   `flag:"reverse" desc:"oldest first"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List the records of a collection",
		Description: `List the records of a collection, newest first.

Without --all one page is printed, followed by its cursor if more
pages exist. With --all every page is fetched.`,
		Usage:  "bsky record list <collection> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<collection>"); err != nil {
				return err
			}
			collection, err := syntax.ParseNSID(args[0])
			if err != nil {
				return cli.Validation("%w", err)
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

			fetch := func(ctx context.Context, cursor string) (*atproto.Page[lexicon.Record[json.RawMessage]], error) {
				return atproto.ListRecords[json.RawMessage](ctx, connection.Client, atproto.ListRecordsRequest{
					Repo:       repo,
					Collection: collection,
					Limit:      params.Limit,
					Reverse:    params.Reverse,
					Cursor:     cursor,
				})
			}

			var (
				records []lexicon.Record[json.RawMessage]
				cursor  string
			)
			if params.All {
				stream, err := atproto.OpenStream(ctx, func(ctx context.Context, cursor string) (*atproto.Page[lexicon.Record[json.RawMessage]], error) {
					if cursor == "" {
						cursor = params.Cursor
					}
					return fetch(ctx, cursor)
				})
				if err != nil {
					return cli.Classify(err)
				}
				if records, err = stream.Collect(ctx); err != nil {
					return cli.Classify(err)
				}
			} else {
				page, err := fetch(ctx, params.Cursor)
				if err != nil {
					return cli.Classify(err)
				}
				records, cursor = page.Items, page.Cursor
			}

			if done, err := params.EmitJSON(records); done {
				return err
			}
			for _, record := range records {
				fmt.Fprintf(cli.Stdout, "%s\t%s\n", record.URI, record.CID)
			}
			if cursor != "" {
				fmt.Fprintf(cli.Stdout, "# more: --cursor %s\n", cursor)
			}
			return nil
		},
	}
}

// resolveRepo parses an explicit repository identifier, or names the
// logged-in account when raw is empty.
func resolveRepo(connection *cli.Connection, raw string) (syntax.AtIdentifier, error) {
	if raw != "" {
		repo, err := syntax.ParseAtIdentifier(raw)
		if err != nil {
			return syntax.AtIdentifier{}, cli.Validation("--repo: %w", err)
		}
		return repo, nil
	}
	did, err := connection.Client.CurrentActor()
	if err != nil {
		return syntax.AtIdentifier{}, cli.Classify(err)
	}
	return syntax.AtIdentifierFromDID(did), nil
}
