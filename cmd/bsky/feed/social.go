// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

type likeParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

// LikeCommand returns the "like" command.
func LikeCommand() *cli.Command {
	var params likeParams
	return &cli.Command{
		Name:    "like",
		Summary: "Like a post or other record",
		Description: `Like the record at an AT-URI. The record is fetched first so the like
carries its current CID.`,
		Usage:  "bsky like <at-uri> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<at-uri>"); err != nil {
				return err
			}
			uri, err := syntax.ParseATURI(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			if uri.RecordKey().IsZero() {
				return cli.Validation("%s does not address a record", uri)
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

			subject, err := atproto.GetRecord[json.RawMessage](ctx, connection.Client,
				uri.Authority(), uri.Collection(), uri.RecordKey().String())
			if err != nil {
				return cli.Classify(err)
			}
			subjectRef, err := subject.Ref().StrongRef()
			if err != nil {
				return cli.Internal("like subject: %w", err)
			}
			ref, err := me.Like(ctx, subjectRef)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(ref); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, ref.URI)
			return nil
		},
	}
}

type followParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

// FollowCommand returns the "follow" command.
func FollowCommand() *cli.Command {
	var params followParams
	return &cli.Command{
		Name:    "follow",
		Summary: "Follow an account",
		Usage:   "bsky follow <handle-or-did> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<handle-or-did>"); err != nil {
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

			user, err := connection.Client.User(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			did, err := user.ResolveHandle(ctx)
			if err != nil {
				return cli.Classify(err)
			}
			ref, err := me.Follow(ctx, did)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(ref); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "following %s\n%s\n", did, ref.URI)
			return nil
		},
	}
}
