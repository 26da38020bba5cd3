// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"time"
)

type whoamiParams struct {
	ClientFlags
	JSONOutput
	Verify bool `flag:"verify" desc:"check the session against the PDS"`
}

type whoamiOutput struct {
	DID           string     `json:"did"`
	Handle        string     `json:"handle"`
	Service       string     `json:"service"`
	SessionFile   string     `json:"session_file"`
	AccessExpires *time.Time `json:"access_expires,omitempty"`
	Status        string     `json:"status,omitempty"`
}

// WhoAmICommand returns the "whoami" command, which shows the saved
// session. With --verify it asks the PDS whether the session is valid
// and exits 1 if not.
func WhoAmICommand() *Command {
	var params whoamiParams

	return &Command{
		Name:    "whoami",
		Summary: "Show the logged-in account",
		Description: `Show the account the saved session belongs to.

Without --verify only the session file is read. With --verify the
session is checked against the PDS, refreshing it if auto_refresh is
configured.`,
		Usage:  "bsky whoami [flags]",
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

			session, _ := connection.Client.Session()
			output := whoamiOutput{
				DID:         session.DID.String(),
				Handle:      session.Handle.String(),
				Service:     connection.Client.Service(),
				SessionFile: connection.Store.Path(),
			}
			if expiresAt, ok := session.AccessExpiresAt(); ok {
				output.AccessExpires = &expiresAt
			}

			var verifyErr error
			if params.Verify {
				if _, verifyErr = connection.Client.GetSession(ctx); verifyErr != nil {
					output.Status = "invalid: " + verifyErr.Error()
				} else {
					output.Status = "valid"
				}
			}

			if done, err := params.EmitJSON(output); done {
				if err == nil && verifyErr != nil {
					err = &ExitError{Code: 1}
				}
				return err
			}

			fmt.Fprintf(Stdout, "DID:          %s\n", output.DID)
			fmt.Fprintf(Stdout, "Handle:       %s\n", output.Handle)
			fmt.Fprintf(Stdout, "Service:      %s\n", output.Service)
			fmt.Fprintf(Stdout, "Session file: %s\n", output.SessionFile)
			if output.AccessExpires != nil {
				fmt.Fprintf(Stdout, "Access until: %s\n", output.AccessExpires.Local().Format(time.RFC1123))
			}
			if output.Status != "" {
				fmt.Fprintf(Stdout, "Status:       %s\n", output.Status)
			}
			if verifyErr != nil {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}
