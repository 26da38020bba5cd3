// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity implements "bsky resolve".
package identity

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

type resolveParams struct {
	cli.ClientFlags
	cli.JSONOutput
}

type resolveOutput struct {
	Handle syntax.Handle `json:"handle"`
	DID    syntax.DID    `json:"did"`
}

// ResolveCommand returns the "resolve" command, which maps handles to
// DIDs through the configured service.
func ResolveCommand() *cli.Command {
	var params resolveParams
	return &cli.Command{
		Name:    "resolve",
		Summary: "Resolve handles to DIDs",
		Usage:   "bsky resolve <handle>... [flags]",
		Params:  func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Resolve two handles",
				Command:     "bsky resolve alice.bsky.social bob.bsky.social",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return cli.Validation("at least one handle is required")
			}
			handles := make([]syntax.Handle, 0, len(args))
			for _, arg := range args {
				handle, err := syntax.ParseHandle(arg)
				if err != nil {
					return cli.Validation("%w", err)
				}
				handles = append(handles, handle)
			}

			connection, err := params.Connect(ctx, cli.SessionOptional)
			if err != nil {
				return err
			}
			defer connection.Close()

			results := make([]resolveOutput, 0, len(handles))
			for _, handle := range handles {
				did, err := connection.Client.ResolveHandle(ctx, handle)
				if err != nil {
					return cli.Classify(err)
				}
				results = append(results, resolveOutput{Handle: handle, DID: did})
			}

			if done, err := params.EmitJSON(results); done {
				return err
			}
			for _, result := range results {
				fmt.Fprintf(cli.Stdout, "%s\t%s\n", result.Handle, result.DID)
			}
			return nil
		},
	}
}
