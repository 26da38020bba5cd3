// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lexicon

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bureau-foundation/atproto/lib/syntax"
)

// ProfileViewBasic is the compact actor view embedded in posts.
type ProfileViewBasic struct {
	DID         syntax.DID    `json:"did"`
	Handle      syntax.Handle `json:"handle"`
	DisplayName string        `json:"displayName,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
}

// ProfileView adds the profile description.
type ProfileView struct {
	ProfileViewBasic
	Description string     `json:"description,omitempty"`
	IndexedAt   *time.Time `json:"indexedAt,omitempty"`
}

// ProfileViewDetailed is returned by app.bsky.actor.getProfile.
type ProfileViewDetailed struct {
	ProfileView
	Banner         string `json:"banner,omitempty"`
	FollowersCount int64  `json:"followersCount"`
	FollowsCount   int64  `json:"followsCount"`
	PostsCount     int64  `json:"postsCount"`
}

// PostView is a post hydrated with its author, embed, and counts.
type PostView struct {
	URI         syntax.ATURI     `json:"uri"`
	CID         string           `json:"cid"`
	Author      ProfileViewBasic `json:"author"`
	Record      Post             `json:"record"`
	Embed       *EmbedView       `json:"embed,omitempty"`
	ReplyCount  int64            `json:"replyCount"`
	RepostCount int64            `json:"repostCount"`
	LikeCount   int64            `json:"likeCount"`
	IndexedAt   time.Time        `json:"indexedAt"`
}

// StrongRef returns a reference to the viewed post, for liking or
// replying to it.
func (p PostView) StrongRef() (StrongRef, error) {
	return NewStrongRef(p.URI.String(), p.CID)
}

// FeedViewPost is one entry of an author or timeline feed.
type FeedViewPost struct {
	Post   PostView    `json:"post"`
	Reason *FeedReason `json:"reason,omitempty"`
}

// FeedReason explains why a post appears in a feed it was not
// authored into.
type FeedReason struct {
	Repost *ReasonRepost
	Pin    *ReasonPin
}

// ReasonRepost marks a feed entry as a repost by another actor.
type ReasonRepost struct {
	By        ProfileViewBasic `json:"by"`
	IndexedAt time.Time        `json:"indexedAt"`
}

// ReasonPin marks the author's pinned post.
type ReasonPin struct{}

func (r ReasonRepost) MarshalJSON() ([]byte, error) {
	type plain ReasonRepost
	return marshalTyped(TypeReasonRepost, plain(r))
}

func (r ReasonPin) MarshalJSON() ([]byte, error) {
	return marshalTyped(TypeReasonPin, struct{}{})
}

func (f FeedReason) MarshalJSON() ([]byte, error) {
	switch {
	case f.Repost != nil:
		return json.Marshal(f.Repost)
	case f.Pin != nil:
		return json.Marshal(f.Pin)
	}
	return nil, fmt.Errorf("lexicon: feed reason: %w", errEmptyUnion)
}

func (f *FeedReason) UnmarshalJSON(data []byte) error {
	const union = "feed reason"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*f = FeedReason{}
	switch typeName {
	case TypeReasonRepost:
		f.Repost, err = decodeVariant[ReasonRepost](data, json.Unmarshal)
	case TypeReasonPin:
		f.Pin = &ReasonPin{}
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

// ThreadView is the union returned as the root of
// app.bsky.feed.getPostThread and in a thread's parent and replies.
type ThreadView struct {
	Post     *ThreadViewPost
	NotFound *NotFoundPost
	Blocked  *BlockedPost
}

// ThreadViewPost is a visible post with its surrounding thread.
type ThreadViewPost struct {
	Post    PostView     `json:"post"`
	Parent  *ThreadView  `json:"parent,omitempty"`
	Replies []ThreadView `json:"replies,omitempty"`
}

// NotFoundPost stands in for a deleted or unknown post.
type NotFoundPost struct {
	URI      syntax.ATURI `json:"uri"`
	NotFound bool         `json:"notFound"`
}

// BlockedPost stands in for a post hidden by a block.
type BlockedPost struct {
	URI     syntax.ATURI  `json:"uri"`
	Blocked bool          `json:"blocked"`
	Author  BlockedAuthor `json:"author"`
}

// BlockedAuthor identifies the author of a blocked post.
type BlockedAuthor struct {
	DID syntax.DID `json:"did"`
}

func (p ThreadViewPost) MarshalJSON() ([]byte, error) {
	type plain ThreadViewPost
	return marshalTyped(TypeThreadViewPost, plain(p))
}

func (p NotFoundPost) MarshalJSON() ([]byte, error) {
	type plain NotFoundPost
	return marshalTyped(TypeNotFoundPost, plain(p))
}

func (p BlockedPost) MarshalJSON() ([]byte, error) {
	type plain BlockedPost
	return marshalTyped(TypeBlockedPost, plain(p))
}

func (t ThreadView) MarshalJSON() ([]byte, error) {
	switch {
	case t.Post != nil:
		return json.Marshal(t.Post)
	case t.NotFound != nil:
		return json.Marshal(t.NotFound)
	case t.Blocked != nil:
		return json.Marshal(t.Blocked)
	}
	return nil, fmt.Errorf("lexicon: thread view: %w", errEmptyUnion)
}

func (t *ThreadView) UnmarshalJSON(data []byte) error {
	const union = "thread view"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*t = ThreadView{}
	switch typeName {
	case TypeThreadViewPost:
		t.Post, err = decodeVariant[ThreadViewPost](data, json.Unmarshal)
	case TypeNotFoundPost:
		t.NotFound, err = decodeVariant[NotFoundPost](data, json.Unmarshal)
	case TypeBlockedPost:
		t.Blocked, err = decodeVariant[BlockedPost](data, json.Unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

// Notification is one entry of app.bsky.notification.listNotifications.
type Notification struct {
	URI           syntax.ATURI       `json:"uri"`
	CID           string             `json:"cid"`
	Author        ProfileView        `json:"author"`
	Reason        string             `json:"reason"`
	ReasonSubject string             `json:"reasonSubject,omitempty"`
	Record        NotificationRecord `json:"record"`
	IsRead        bool               `json:"isRead"`
	IndexedAt     time.Time          `json:"indexedAt"`
}

// Notification reasons.
const (
	NotificationReasonLike    = "like"
	NotificationReasonRepost  = "repost"
	NotificationReasonFollow  = "follow"
	NotificationReasonMention = "mention"
	NotificationReasonReply   = "reply"
	NotificationReasonQuote   = "quote"
)

// NotificationRecord is the record that caused a notification.
type NotificationRecord struct {
	Post   *Post
	Like   *Like
	Repost *Repost
	Follow *Follow
}

func (r NotificationRecord) MarshalJSON() ([]byte, error) {
	switch {
	case r.Post != nil:
		return json.Marshal(r.Post)
	case r.Like != nil:
		return json.Marshal(r.Like)
	case r.Repost != nil:
		return json.Marshal(r.Repost)
	case r.Follow != nil:
		return json.Marshal(r.Follow)
	}
	return nil, fmt.Errorf("lexicon: notification record: %w", errEmptyUnion)
}

func (r *NotificationRecord) UnmarshalJSON(data []byte) error {
	const union = "notification record"
	typeName, err := peekType(data, json.Unmarshal, union)
	if err != nil {
		return err
	}
	*r = NotificationRecord{}
	switch typeName {
	case TypePost:
		r.Post, err = decodeVariant[Post](data, json.Unmarshal)
	case TypeLike:
		r.Like, err = decodeVariant[Like](data, json.Unmarshal)
	case TypeRepost:
		r.Repost, err = decodeVariant[Repost](data, json.Unmarshal)
	case TypeFollow:
		r.Follow, err = decodeVariant[Follow](data, json.Unmarshal)
	default:
		return &UnknownTypeError{Union: union, Type: typeName}
	}
	return err
}

// LikeView is one entry of app.bsky.feed.getLikes.
type LikeView struct {
	Actor     ProfileView `json:"actor"`
	CreatedAt time.Time   `json:"createdAt"`
	IndexedAt time.Time   `json:"indexedAt"`
}
