// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"os"
)

type logoutParams struct {
	ClientFlags
}

// LogoutCommand returns the "logout" command: revoke the session on the
// PDS and delete the session file.
func LogoutCommand() *Command {
	var params logoutParams

	return &Command{
		Name:    "logout",
		Summary: "Revoke the session and delete the session file",
		Description: `Revoke the saved session on the PDS and delete the session file.

The file is deleted even if the PDS cannot be reached; the error is
still reported.`,
		Usage:  "bsky logout [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := NoArgs(args); err != nil {
				return err
			}
			connection, err := params.Connect(ctx, SessionRequired)
			if err != nil {
				return err
			}
			defer connection.Close()
			logoutErr := connection.Client.Logout(ctx)
			if err := connection.Store.Remove(); err != nil {
				return Internal("%w", err)
			}
			if logoutErr != nil {
				return Classify(fmt.Errorf("session file removed, but revoking the session failed: %w", logoutErr))
			}
			fmt.Fprintln(os.Stderr, "Logged out")
			return nil
		},
	}
}
