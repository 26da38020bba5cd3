// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notification implements "bsky notification".
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lexicon"
)

// Command returns the "notification" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "notification",
		Summary: "List, count, and mark notifications seen",
		Subcommands: []*cli.Command{
			listCommand(),
			countCommand(),
			seenCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Show unread notifications, then mark them seen",
				Command:     "bsky notification list --unread && bsky notification seen",
			},
		},
	}
}

type listParams struct {
	cli.ClientFlags
	cli.JSONOutput
	Limit  int    `flag:"limit,n" desc:"notifications per page, 1-100" default:"25"`
	Cursor string `flag:"cursor" desc:"resume from a cursor printed by a previous page"`
	All    bool   `flag:"all" desc:"follow cursors until every notification is listed"`
	Unread bool   `flag:"unread" desc:"only show notifications not yet marked read"`
}

func listCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List notifications, newest first",
		Usage:   "bsky notification list [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArgs(args); err != nil {
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

			var (
				notifications []lexicon.Notification
				cursor        string
			)
			if params.All {
				stream, err := me.StreamNotifications(ctx)
				if err != nil {
					return cli.Classify(err)
				}
				for notification, err := range stream.All(ctx) {
					if err != nil {
						return cli.Classify(err)
					}
					if params.Unread && notification.IsRead {
						// Notifications are newest first, so everything
						// past the first read one has been seen too.
						break
					}
					notifications = append(notifications, notification)
				}
			} else {
				page, err := me.ListNotifications(ctx, params.Limit, params.Cursor)
				if err != nil {
					return cli.Classify(err)
				}
				cursor = page.Cursor
				for _, notification := range page.Items {
					if params.Unread && notification.IsRead {
						continue
					}
					notifications = append(notifications, notification)
				}
			}

			if done, err := params.EmitJSON(notifications); done {
				return err
			}
			styles := cli.NewStyles(cli.Stdout)
			for _, notification := range notifications {
				fmt.Fprintln(cli.Stdout, styles.Truncate(describe(styles, notification)))
			}
			if cursor != "" {
				fmt.Fprintf(cli.Stdout, "# more: --cursor %s\n", cursor)
			}
			return nil
		},
	}
}

// describe renders a notification as one line.
func describe(styles *cli.Styles, notification lexicon.Notification) string {
	marker := " "
	if !notification.IsRead {
		marker = styles.Unread.Render("*")
	}
	who := styles.Name.Render("@" + notification.Author.Handle.String())
	var what string
	switch notification.Reason {
	case lexicon.NotificationReasonLike:
		what = "liked your post"
	case lexicon.NotificationReasonRepost:
		what = "reposted your post"
	case lexicon.NotificationReasonFollow:
		what = "followed you"
	default:
		what = notification.Reason
		if post := notification.Record.Post; post != nil {
			what += ": " + firstLine(post.Text)
		}
	}
	return fmt.Sprintf("%s %s  %s %s", marker,
		styles.Faint.Render(notification.IndexedAt.Local().Format(time.DateTime)), who, what)
}

func firstLine(text string) string {
	for index, r := range text {
		if r == '\n' {
			return text[:index] + " ..."
		}
	}
	return text
}

type countParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

type countOutput struct {
	Unread int `json:"unread"`
}

func countCommand() *cli.Command {
	var params countParams
	return &cli.Command{
		Name:    "count",
		Summary: "Print the number of unread notifications",
		Usage:   "bsky notification count [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArgs(args); err != nil {
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
			count, err := me.NotificationCount(ctx, time.Time{})
			if err != nil {
				return cli.Classify(err)
			}
			if done, err := params.EmitJSON(countOutput{Unread: count}); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, count)
			return nil
		},
	}
}

type seenParams struct {
	cli.ClientFlags
}

func seenCommand() *cli.Command {
	var params seenParams
	return &cli.Command{
		Name:    "seen",
		Summary: "Mark all notifications as seen",
		Usage:   "bsky notification seen [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.NoArgs(args); err != nil {
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
			if err := me.UpdateSeen(ctx); err != nil {
				return cli.Classify(err)
			}
			connection.Logger.Info("notifications marked seen", "did", me.DID())
			return nil
		},
	}
}
