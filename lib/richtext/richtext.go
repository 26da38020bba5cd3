// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package richtext

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// maxTagLength is the longest hashtag, in runes, that gets a tag
// facet. Longer runs stay plain text.
const maxTagLength = 64

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"]+`)
	tagPattern     = regexp.MustCompile(`(?:^|\s)(#[\p{L}\p{M}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`(?:^|[\s(])(@[a-zA-Z0-9.-]+)`)
)

// Text is post text together with its facets.
type Text struct {
	Text   string
	Facets []lexicon.Facet

	// Mentions are @handle ranges that still need a DID. They become
	// mention facets in ResolveMentions.
	Mentions []Mention
}

// Mention is an unresolved @handle in the text. Index covers the '@'.
type Mention struct {
	Handle syntax.Handle
	Index  lexicon.ByteSlice
}

// Resolver maps a handle to its DID. A handle that does not exist is
// reported as a zero DID with a nil error; a non-nil error aborts
// resolution.
type Resolver func(ctx context.Context, handle syntax.Handle) (syntax.DID, error)

// Detect returns plain text with link facets for http(s) URLs, tag
// facets for hashtags, and pending mentions for @handles.
func Detect(text string) Text {
	result := Text{Text: text}
	result.detect()
	return result
}

// ResolveMentions converts each pending mention into a mention facet.
// Mentions whose handle does not resolve are dropped and stay plain
// text.
func (t *Text) ResolveMentions(ctx context.Context, resolve Resolver) error {
	for _, mention := range t.Mentions {
		did, err := resolve(ctx, mention.Handle)
		if err != nil {
			return fmt.Errorf("resolving @%s: %w", mention.Handle, err)
		}
		if did.IsZero() {
			continue
		}
		t.Facets = append(t.Facets, lexicon.Facet{
			Index:    mention.Index,
			Features: []lexicon.FacetFeature{{Mention: &lexicon.FacetMention{DID: did}}},
		})
	}
	t.Mentions = nil
	t.sortFacets()
	return nil
}

// Apply copies the text and facets into post.
func (t Text) Apply(post *lexicon.Post) {
	post.Text = t.Text
	post.Facets = slices.Clone(t.Facets)
}

// detect scans t.Text for URLs, hashtags, and mentions that do not
// overlap an existing facet.
func (t *Text) detect() {
	for _, match := range urlPattern.FindAllStringIndex(t.Text, -1) {
		start, end := match[0], match[0]+len(trimURL(t.Text[match[0]:match[1]]))
		if t.covered(start, end) {
			continue
		}
		t.Facets = append(t.Facets, lexicon.Facet{
			Index:    lexicon.ByteSlice{ByteStart: start, ByteEnd: end},
			Features: []lexicon.FacetFeature{{Link: &lexicon.FacetLink{URI: t.Text[start:end]}}},
		})
	}

	for _, match := range tagPattern.FindAllStringSubmatchIndex(t.Text, -1) {
		start, end := match[2], match[3]
		tag := strings.TrimRight(t.Text[start+1:end], "_")
		end = start + 1 + len(tag)
		if !validTag(tag) || t.covered(start, end) {
			continue
		}
		t.Facets = append(t.Facets, lexicon.Facet{
			Index:    lexicon.ByteSlice{ByteStart: start, ByteEnd: end},
			Features: []lexicon.FacetFeature{{Tag: &lexicon.FacetTag{Tag: tag}}},
		})
	}

	for _, match := range mentionPattern.FindAllStringSubmatchIndex(t.Text, -1) {
		start, end := match[2], match[3]
		raw := strings.TrimRight(t.Text[start+1:end], ".-")
		end = start + 1 + len(raw)
		handle, err := syntax.ParseHandle(raw)
		if err != nil || t.covered(start, end) {
			continue
		}
		t.Mentions = append(t.Mentions, Mention{
			Handle: handle,
			Index:  lexicon.ByteSlice{ByteStart: start, ByteEnd: end},
		})
	}

	t.sortFacets()
}

// covered reports whether [start, end) intersects a facet already
// recorded.
func (t *Text) covered(start, end int) bool {
	for _, facet := range t.Facets {
		if start < facet.Index.ByteEnd && end > facet.Index.ByteStart {
			return true
		}
	}
	return false
}

func (t *Text) sortFacets() {
	slices.SortStableFunc(t.Facets, func(a, b lexicon.Facet) int {
		return a.Index.ByteStart - b.Index.ByteStart
	})
}

// trimURL drops sentence punctuation that the URL pattern swallowed,
// and a closing parenthesis with no opening one inside the URL.
func trimURL(url string) string {
	for {
		trimmed := strings.TrimRight(url, ".,;:!?'\"")
		if strings.HasSuffix(trimmed, ")") && !strings.Contains(trimmed, "(") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed == url {
			return url
		}
		url = trimmed
	}
}

// validTag rejects empty tags, all-digit tags, and tags over the
// length limit.
func validTag(tag string) bool {
	if tag == "" || utf8.RuneCountInString(tag) > maxTagLength {
		return false
	}
	return strings.TrimLeft(tag, "0123456789") != ""
}
