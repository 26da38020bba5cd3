// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete bsky command tree.
package commands

import (
	"context"

	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	feedcmd "github.com/bureau-foundation/atproto/cmd/bsky/feed"
	identitycmd "github.com/bureau-foundation/atproto/cmd/bsky/identity"
	notificationcmd "github.com/bureau-foundation/atproto/cmd/bsky/notification"
	recordcmd "github.com/bureau-foundation/atproto/cmd/bsky/record"
	"github.com/bureau-foundation/atproto/lib/version"
)

// Root builds and returns the bsky command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bsky",
		Description: `bsky: a command-line client for AT Protocol services.

Log in to a PDS, publish and read posts, and manage repository records
of any collection. The session is saved locally and refreshed as
needed.`,
		Subcommands: []*cli.Command{
			cli.LoginCommand(),
			cli.LogoutCommand(),
			cli.WhoAmICommand(),
			feedcmd.PostCommand(),
			feedcmd.ThreadCommand(),
			feedcmd.ProfileCommand(),
			feedcmd.AuthorFeedCommand(),
			feedcmd.LikeCommand(),
			feedcmd.FollowCommand(),
			notificationcmd.Command(),
			recordcmd.Command(),
			recordcmd.UploadCommand(),
			identitycmd.ResolveCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					if err := cli.NoArgs(args); err != nil {
						return err
					}
					version.Print(cli.Stdout, "bsky")
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Log in (the password is prompted for)",
				Command:     "bsky login alice.bsky.social",
			},
			{
				Description: "Publish a post",
				Command:     "bsky post hello world",
			},
			{
				Description: "Read your notifications",
				Command:     "bsky notification list",
			},
			{
				Description: "Dump every post in a repository as JSON",
				Command:     "bsky record list app.bsky.feed.post --repo bob.bsky.social --all --json",
			},
		},
	}
}
