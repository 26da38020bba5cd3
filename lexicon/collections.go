// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import "github.com/bureau-foundation/atproto/lib/syntax"

// Record and object type names, as they appear in "$type".
const (
	TypePost    = "app.bsky.feed.post"
	TypeLike    = "app.bsky.feed.like"
	TypeRepost  = "app.bsky.feed.repost"
	TypeFollow  = "app.bsky.graph.follow"
	TypeProfile = "app.bsky.actor.profile"
	TypeBlob    = "blob"

	TypeEmbedImages          = "app.bsky.embed.images"
	TypeEmbedExternal        = "app.bsky.embed.external"
	TypeEmbedRecord          = "app.bsky.embed.record"
	TypeEmbedRecordWithMedia = "app.bsky.embed.recordWithMedia"

	TypeEmbedImagesView          = "app.bsky.embed.images#view"
	TypeEmbedExternalView        = "app.bsky.embed.external#view"
	TypeEmbedRecordView          = "app.bsky.embed.record#view"
	TypeEmbedRecordWithMediaView = "app.bsky.embed.recordWithMedia#view"

	TypeEmbedRecordViewRecord   = "app.bsky.embed.record#viewRecord"
	TypeEmbedRecordViewNotFound = "app.bsky.embed.record#viewNotFound"
	TypeEmbedRecordViewBlocked  = "app.bsky.embed.record#viewBlocked"

	TypeThreadViewPost = "app.bsky.feed.defs#threadViewPost"
	TypeNotFoundPost   = "app.bsky.feed.defs#notFoundPost"
	TypeBlockedPost    = "app.bsky.feed.defs#blockedPost"
	TypeReasonRepost   = "app.bsky.feed.defs#reasonRepost"
	TypeReasonPin      = "app.bsky.feed.defs#reasonPin"

	TypeFacetMention = "app.bsky.richtext.facet#mention"
	TypeFacetLink    = "app.bsky.richtext.facet#link"
	TypeFacetTag     = "app.bsky.richtext.facet#tag"
)

// Collection NSIDs for the record types in this package.
var (
	CollectionPost    = syntax.MustParseNSID(TypePost)
	CollectionLike    = syntax.MustParseNSID(TypeLike)
	CollectionRepost  = syntax.MustParseNSID(TypeRepost)
	CollectionFollow  = syntax.MustParseNSID(TypeFollow)
	CollectionProfile = syntax.MustParseNSID(TypeProfile)
)

// RecordValue is implemented by every repository record type. The
// collection a record is written to is the NSID of its type.
type RecordValue interface {
	Typed
	Collection() syntax.NSID
}

func (Post) Collection() syntax.NSID    { return CollectionPost }
func (Like) Collection() syntax.NSID    { return CollectionLike }
func (Repost) Collection() syntax.NSID  { return CollectionRepost }
func (Follow) Collection() syntax.NSID  { return CollectionFollow }
func (Profile) Collection() syntax.NSID { return CollectionProfile }
