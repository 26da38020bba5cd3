// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Styles formats human-readable command output. Styling and width
// limits apply only when the destination is a terminal; otherwise
// every style renders its input unchanged, so piped output and tests
// see plain text.
//
// Render single-line strings only: lipgloss pads multi-line input to
// a common width.
type Styles struct {
	// Name is for display names and handles.
	Name lipgloss.Style
	// Faint is for timestamps, counts, and URIs.
	Faint lipgloss.Style
	// Accent marks labels such as embed kinds and notification reasons.
	Accent lipgloss.Style
	// Unread highlights items the user has not seen.
	Unread lipgloss.Style

	output *termenv.Output
	width  int
}

// NewStyles returns styles for output written to w.
func NewStyles(w io.Writer) *Styles {
	renderer := lipgloss.NewRenderer(w)
	styles := &Styles{
		Name:   renderer.NewStyle().Bold(true),
		Faint:  renderer.NewStyle().Faint(true),
		Accent: renderer.NewStyle().Foreground(lipgloss.Color("39")),
		Unread: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
	if descriptor, ok := terminalDescriptor(w); ok {
		styles.output = termenv.NewOutput(w)
		if width, _, err := term.GetSize(descriptor); err == nil {
			styles.width = width
		}
	}
	return styles
}

// Link returns text as a terminal hyperlink to url. Without a terminal
// it returns text.
func (s *Styles) Link(url, text string) string {
	if s.output == nil {
		return text
	}
	return s.output.Hyperlink(url, text)
}

// Truncate shortens line to the terminal width, ending it with an
// ellipsis. ANSI sequences do not count toward the width. Without a
// terminal the line is returned as is.
func (s *Styles) Truncate(line string) string {
	if s.width <= 0 {
		return line
	}
	return ansi.Truncate(line, s.width, "…")
}

// terminalDescriptor returns w's file descriptor when w is a terminal.
func terminalDescriptor(w io.Writer) (int, bool) {
	file, ok := w.(*os.File)
	if !ok {
		return 0, false
	}
	descriptor := int(file.Fd())
	return descriptor, term.IsTerminal(descriptor)
}

// highlightJSON writes already-encoded JSON to w, syntax-highlighted
// when w is a terminal.
func highlightJSON(w io.Writer, encoded []byte) error {
	if _, isTerminal := terminalDescriptor(w); isTerminal {
		var highlighted strings.Builder
		if err := quick.Highlight(&highlighted, string(encoded), "json", "terminal256", "monokai"); err == nil {
			_, err := io.WriteString(w, highlighted.String())
			return err
		}
	}
	_, err := w.Write(encoded)
	return err
}
