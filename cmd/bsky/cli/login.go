// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type loginParams struct {
	ClientFlags
	PasswordFile string `flag:"password-file" desc:"file containing the password, or - for stdin (default: prompt)"`
}

// LoginCommand returns the "login" command. It creates a session with
// an identifier and password, then saves it to the session file so
// later commands can use it.
func LoginCommand() *Command {
	var params loginParams

	return &Command{
		Name:    "login",
		Summary: "Log in and save the session",
		Description: `Log in to a PDS and save the session locally.

The identifier is a handle, DID, or account email. Use an app password
rather than the account password. The password is read from
--password-file, or prompted for when stdin is a terminal.

The session is written to the session file (mode 0600) and used by
every later command until "bsky logout".`,
		Usage: "bsky login <identifier> [flags]",
		Examples: []Example{
			{
				Description: "Log in interactively",
				Command:     "bsky login alice.bsky.social",
			},
			{
				Description: "Log in to a self-hosted PDS with a password from a file",
				Command:     "bsky login alice.example.com --service https://pds.example.com --password-file ~/.bsky-app-password",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if err := ExactArgs(args, 1, "<identifier>"); err != nil {
				return err
			}
			identifier := args[0]

			password, err := readPassword(params.PasswordFile, identifier)
			if err != nil {
				return Validation("reading password: %w", err)
			}

			connection, err := params.Connect(ctx, SessionOptional)
			if err != nil {
				return err
			}
			defer connection.Close()
			session, err := connection.Client.Login(ctx, identifier, password)
			if err != nil {
				return Classify(err)
			}
			if err := connection.Save(); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Logged in as %s (%s)\n", session.Handle, session.DID)
			fmt.Fprintf(os.Stderr, "Session saved to %s\n", connection.Store.Path())
			return nil
		},
	}
}

// readPassword reads from path ("-" for stdin), or prompts on the
// terminal when path is empty.
func readPassword(path, identifier string) (string, error) {
	switch {
	case path == "-":
		return readFirstLine(os.Stdin)
	case path != "":
		file, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer file.Close()
		return readFirstLine(file)
	}

	descriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(descriptor) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-file")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", identifier)
	password, err := term.ReadPassword(descriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(password), nil
}

func readFirstLine(reader io.Reader) (string, error) {
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty password")
	}
	return line, nil
}
