// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"net/http"
	"os"

	"github.com/bureau-foundation/atproto/cmd/bsky/cli"
)

type uploadParams struct {
	cli.ClientFlags
	MimeType string `flag:"mime-type" desc:"media type of the file (default: sniffed from its content)"`
}

// UploadCommand returns the "upload" command, which uploads a file as a
// blob and prints the blob reference to embed in a record.
func UploadCommand() *cli.Command {
	var params uploadParams
	return &cli.Command{
		Name:    "upload",
		Summary: "Upload a file as a blob",
		Description: `Upload a file to your PDS and print the blob reference as JSON.

The reference is checked against a CID computed locally from the file.
Paste it into a record (for example an image embed) to keep the blob
from being garbage-collected.`,
		Usage:  "bsky upload <file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, 1, "<file>"); err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			mimeType := params.MimeType
			if mimeType == "" {
				mimeType = http.DetectContentType(data)
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
			blob, err := me.UploadBlob(ctx, data, mimeType)
			if err != nil {
				return cli.Classify(err)
			}
			return cli.WriteJSON(blob)
		},
	}
}
