// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package richtext

import (
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/bureau-foundation/atproto/lexicon"
)

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
		)
	})
	return markdownInstance
}

// Markdown flattens a small markdown document into post text. Inline
// links and <autolinks> become link facets over their label. Emphasis
// and code markers are dropped, and list items keep a "- " or "N. "
// prefix. Bare URLs, hashtags, and mentions are then detected in the
// flattened text as in Detect.
func Markdown(input string) Text {
	source := []byte(input)
	document := markdownParser().Parser().Parse(text.NewReader(source))

	flattener := &flattener{source: source}
	ast.Walk(document, flattener.walk)

	result := Text{
		Text:   strings.TrimRight(flattener.output.String(), "\n"),
		Facets: flattener.links,
	}
	result.detect()
	return result
}

// flattener walks a goldmark AST writing plain text and recording
// link ranges in output byte offsets.
type flattener struct {
	source []byte
	output strings.Builder
	links  []lexicon.Facet

	// Start offsets of links being written, innermost last.
	linkStarts []int
	codeDepth  int
	lists      []listState

	trailingNewlines int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (f *flattener) write(s string) {
	if s == "" {
		return
	}
	f.output.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		f.trailingNewlines += len(s)
	} else {
		f.trailingNewlines = len(s) - len(trimmed)
	}
}

func (f *flattener) ensureNewline() {
	if f.output.Len() > 0 && f.trailingNewlines < 1 {
		f.write("\n")
	}
}

func (f *flattener) ensureBlankLine() {
	if f.output.Len() == 0 {
		return
	}
	for f.trailingNewlines < 2 {
		f.write("\n")
	}
}

func (f *flattener) inTightList() bool {
	return len(f.lists) > 0 && f.lists[len(f.lists)-1].tight
}

func (f *flattener) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock, ast.KindHeading:
		if !entering {
			f.ensureNewline()
			if !f.inTightList() {
				f.ensureBlankLine()
			}
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
		if entering {
			f.ensureBlankLine()
			lines := node.Lines()
			for index := 0; index < lines.Len(); index++ {
				segment := lines.At(index)
				f.write(string(segment.Value(f.source)))
			}
			f.ensureNewline()
			f.ensureBlankLine()
			return ast.WalkSkipChildren, nil
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			f.lists = append(f.lists, listState{ordered: list.IsOrdered(), counter: list.Start, tight: list.IsTight})
		} else {
			f.lists = f.lists[:len(f.lists)-1]
			f.ensureNewline()
			if !f.inTightList() {
				f.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering && len(f.lists) > 0 {
			top := &f.lists[len(f.lists)-1]
			f.ensureNewline()
			f.write(strings.Repeat("  ", len(f.lists)-1))
			if top.ordered {
				f.write(strconv.Itoa(top.counter) + ". ")
				top.counter++
			} else {
				f.write("- ")
			}
		}

	case ast.KindThematicBreak:
		if entering {
			f.ensureBlankLine()
			f.write("---\n")
			f.ensureBlankLine()
		}

	case ast.KindText:
		if entering {
			f.text(node.(*ast.Text))
		}

	case ast.KindString:
		if entering {
			f.write(string(node.(*ast.String).Value))
		}

	case ast.KindCodeSpan:
		if entering {
			f.codeDepth++
		} else {
			f.codeDepth--
		}

	case ast.KindLink:
		if entering {
			f.linkStarts = append(f.linkStarts, f.output.Len())
		} else {
			f.closeLink(string(node.(*ast.Link).Destination))
		}

	case ast.KindAutoLink:
		if entering {
			autoLink := node.(*ast.AutoLink)
			start := f.output.Len()
			f.write(string(autoLink.Label(f.source)))
			f.addLink(start, string(autoLink.URL(f.source)))
		}

	case ast.KindRawHTML:
		if entering {
			raw := node.(*ast.RawHTML)
			for index := 0; index < raw.Segments.Len(); index++ {
				segment := raw.Segments.At(index)
				f.write(string(segment.Value(f.source)))
			}
		}
	}
	return ast.WalkContinue, nil
}

func (f *flattener) text(node *ast.Text) {
	value := node.Segment.Value(f.source)
	if f.codeDepth == 0 {
		value = util.UnescapePunctuations(value)
		value = util.ResolveNumericReferences(value)
		value = util.ResolveEntityNames(value)
	}
	f.write(string(value))
	if node.SoftLineBreak() || node.HardLineBreak() {
		f.write("\n")
	}
}

func (f *flattener) closeLink(destination string) {
	if len(f.linkStarts) == 0 {
		return
	}
	start := f.linkStarts[len(f.linkStarts)-1]
	f.linkStarts = f.linkStarts[:len(f.linkStarts)-1]
	f.addLink(start, destination)
}

func (f *flattener) addLink(start int, destination string) {
	end := f.output.Len()
	if destination == "" || end == start {
		return
	}
	f.links = append(f.links, lexicon.Facet{
		Index:    lexicon.ByteSlice{ByteStart: start, ByteEnd: end},
		Features: []lexicon.FacetFeature{{Link: &lexicon.FacetLink{URI: destination}}},
	})
}
