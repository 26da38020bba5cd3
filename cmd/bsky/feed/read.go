// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package feed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bureau-foundation/atproto/atproto"
	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

type threadParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

// ThreadCommand returns the "thread" command.
func ThreadCommand() *cli.Command {
	var params threadParams
	return &cli.Command{
		Name:    "thread",
		Summary: "Show a post with its parents and replies",
		Usage:   "bsky thread <at-uri> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<at-uri>"); err != nil {
				return err
			}
			uri, err := syntax.ParseATURI(args[0])
			if err != nil {
				return cli.Validation("%w", err)
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

			thread, err := me.PostThread(ctx, uri)
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(thread); done {
				return err
			}
			if thread.Post == nil {
				return cli.NotFound("%s: %s", uri, threadPlaceholder(*thread))
			}
			printer := newPostPrinter(cli.Stdout)
			printer.parents(thread.Post.Parent)
			printer.thread(*thread, 0)
			return nil
		},
	}
}

// postPrinter writes posts, threads, and feed entries in the
// human-readable layout.
type postPrinter struct {
	w      io.Writer
	styles *cli.Styles
}

func newPostPrinter(w io.Writer) *postPrinter {
	return &postPrinter{w: w, styles: cli.NewStyles(w)}
}

// parents prints the ancestors of a post, root first.
func (p *postPrinter) parents(parent *lexicon.ThreadView) {
	if parent == nil {
		return
	}
	if parent.Post != nil {
		p.parents(parent.Post.Parent)
		p.post(parent.Post.Post, "")
		fmt.Fprintln(p.w, "  |")
		return
	}
	fmt.Fprintf(p.w, "%s\n  |\n", p.styles.Faint.Render("["+threadPlaceholder(*parent)+"]"))
}

// thread prints a post and its replies, indenting each level.
func (p *postPrinter) thread(view lexicon.ThreadView, depth int) {
	indent := strings.Repeat("    ", depth)
	if view.Post == nil {
		fmt.Fprintf(p.w, "%s%s\n", indent, p.styles.Faint.Render("["+threadPlaceholder(view)+"]"))
		return
	}
	p.post(view.Post.Post, indent)
	for _, reply := range view.Post.Replies {
		p.thread(reply, depth+1)
	}
}

func threadPlaceholder(view lexicon.ThreadView) string {
	switch {
	case view.NotFound != nil:
		return "post not found"
	case view.Blocked != nil:
		return "blocked post"
	}
	return "unavailable post"
}

func (p *postPrinter) post(post lexicon.PostView, indent string) {
	name := "@" + post.Author.Handle.String()
	if post.Author.DisplayName != "" {
		name = post.Author.DisplayName + " (" + name + ")"
	}
	fmt.Fprintf(p.w, "%s%s  %s\n", indent,
		p.styles.Name.Render(name),
		p.styles.Faint.Render(post.Record.CreatedAt.Local().Format(time.DateTime)))
	for _, line := range strings.Split(post.Record.Text, "\n") {
		fmt.Fprintf(p.w, "%s  %s\n", indent, line)
	}
	if post.Embed != nil {
		fmt.Fprintf(p.w, "%s  %s\n", indent, p.styles.Accent.Render("["+embedLabel(*post.Embed)+"]"))
	}
	counts := fmt.Sprintf("%d replies  %d reposts  %d likes",
		post.ReplyCount, post.RepostCount, post.LikeCount)
	fmt.Fprintf(p.w, "%s  %s  %s\n", indent, p.styles.Faint.Render(counts),
		p.styles.Link(webURL(post.URI), post.URI.String()))
}

// webURL returns the bsky.app address of a post.
func webURL(uri syntax.ATURI) string {
	return "https://bsky.app/profile/" + uri.Authority().String() + "/post/" + uri.RecordKey().String()
}

func embedLabel(embed lexicon.EmbedView) string {
	switch {
	case embed.Images != nil:
		return fmt.Sprintf("%d images", len(embed.Images.Images))
	case embed.External != nil:
		return "link " + embed.External.External.URI
	case embed.Record != nil:
		return "quote"
	case embed.RecordWithMedia != nil:
		return "quote with media"
	}
	return "embed"
}

type profileParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

// ProfileCommand returns the "profile" command.
func ProfileCommand() *cli.Command {
	var params profileParams
	return &cli.Command{
		Name:        "profile",
		Summary:     "Show an actor's profile",
		Description: "Show an actor's profile. Without an argument, shows your own.",
		Usage:       "bsky profile [handle-or-did] [flags]",
		Params:      func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one actor, got %d arguments", len(args))
			}
			requirement := cli.SessionRequired
			if len(args) == 1 {
				requirement = cli.SessionOptional
			}
			connection, err := params.Connect(ctx, requirement)
			if err != nil {
				return err
			}
			defer connection.Close()

			var profile *lexicon.ProfileViewDetailed
			if len(args) == 0 {
				me, err := connection.Me()
				if err != nil {
					return err
				}
				profile, err = me.Profile(ctx)
				if err != nil {
					return cli.Classify(err)
				}
			} else {
				user, err := connection.Client.User(args[0])
				if err != nil {
					return cli.Validation("%w", err)
				}
				if profile, err = user.Profile(ctx); err != nil {
					return cli.Classify(err)
				}
			}

			if done, err := params.EmitJSON(profile); done {
				return err
			}
			if profile.DisplayName != "" {
				fmt.Fprintln(cli.Stdout, profile.DisplayName)
			}
			fmt.Fprintf(cli.Stdout, "@%s\n%s\n", profile.Handle, profile.DID)
			if profile.Description != "" {
				fmt.Fprintf(cli.Stdout, "\n%s\n", profile.Description)
			}
			fmt.Fprintf(cli.Stdout, "\n%d posts  %d followers  %d following\n",
				profile.PostsCount, profile.FollowersCount, profile.FollowsCount)
			return nil
		},
	}
}

type authorFeedParams struct {
	cli.ClientFlags
	cli.JSONOutput
	Limit  int    `flag:"limit,n" desc:"entries per page, 1-100" default:"25"`
	Cursor string `flag:"cursor" desc:"resume from a cursor printed by a previous page"`
	All    bool   `flag:"all" desc:"follow cursors until the feed is exhausted"`
}

// AuthorFeedCommand returns the "feed" command.
func AuthorFeedCommand() *cli.Command {
	var params authorFeedParams
	return &cli.Command{
		Name:    "feed",
		Summary: "Show an actor's posts and reposts",
		Usage:   "bsky feed [handle-or-did] [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return cli.Validation("expected at most one actor, got %d arguments", len(args))
			}
			requirement := cli.SessionRequired
			if len(args) == 1 {
				requirement = cli.SessionOptional
			}
			connection, err := params.Connect(ctx, requirement)
			if err != nil {
				return err
			}
			defer connection.Close()

			user, err := actorUser(connection, args)
			if err != nil {
				return err
			}

			var (
				entries []lexicon.FeedViewPost
				cursor  string
			)
			if params.All {
				stream, err := user.StreamAuthorFeed(ctx)
				if err != nil {
					return cli.Classify(err)
				}
				if entries, err = stream.Collect(ctx); err != nil {
					return cli.Classify(err)
				}
			} else {
				page, err := user.AuthorFeed(ctx, params.Limit, params.Cursor)
				if err != nil {
					return cli.Classify(err)
				}
				entries, cursor = page.Items, page.Cursor
			}

			if done, err := params.EmitJSON(entries); done {
				return err
			}
			printer := newPostPrinter(cli.Stdout)
			for index, entry := range entries {
				if index > 0 {
					fmt.Fprintln(cli.Stdout)
				}
				if entry.Reason != nil && entry.Reason.Repost != nil {
					fmt.Fprintln(cli.Stdout, printer.styles.Accent.Render("reposted by @"+entry.Reason.Repost.By.Handle.String()))
				}
				printer.post(entry.Post, "")
			}
			if cursor != "" {
				fmt.Fprintf(cli.Stdout, "\n# more: --cursor %s\n", cursor)
			}
			return nil
		},
	}
}

// actorUser returns a handle on the actor named by args[0], or on the
// logged-in account when args is empty.
func actorUser(connection *cli.Connection, args []string) (*atproto.User, error) {
	identifier := ""
	if len(args) == 1 {
		identifier = args[0]
	} else {
		did, err := connection.Client.CurrentActor()
		if err != nil {
			return nil, cli.Classify(err)
		}
		identifier = did.String()
	}
	user, err := connection.Client.User(identifier)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return user, nil
}
