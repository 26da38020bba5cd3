// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package richtext turns user-written text into an app.bsky post body:
// the text itself plus facets, the byte-range annotations that make
// links, hashtags, and @mentions interactive.
//
// [Detect] scans plain text. [Markdown] first flattens a markdown
// document with goldmark, turning inline links into link facets over
// their labels, and then scans the result the same way. Facet offsets
// are UTF-8 byte offsets into the final text.
//
// Mentions need a network lookup to become facets, so detection
// records them as pending [Mention] values and [Text.ResolveMentions]
// converts the ones that resolve.
package richtext
