// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/xrpc"
)

const (
	methodGetProfile        = "app.bsky.actor.getProfile"
	methodGetPostThread     = "app.bsky.feed.getPostThread"
	methodGetLikes          = "app.bsky.feed.getLikes"
	methodGetAuthorFeed     = "app.bsky.feed.getAuthorFeed"
	methodGetFollows        = "app.bsky.graph.getFollows"
	methodGetFollowers      = "app.bsky.graph.getFollowers"
	methodGetUnreadCount    = "app.bsky.notification.getUnreadCount"
	methodListNotifications = "app.bsky.notification.listNotifications"
	methodUpdateSeen        = "app.bsky.notification.updateSeen"
)

// datetimeLayout is the lexicon datetime format: RFC 3339 with
// millisecond precision.
const datetimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Me is scoped to the logged-in account.
type Me struct {
	client *Client
	did    syntax.DID
}

// DID returns the account's DID.
func (m *Me) DID() syntax.DID { return m.did }

func (m *Me) repo() syntax.AtIdentifier { return syntax.AtIdentifierFromDID(m.did) }

// Post publishes a post. A zero CreatedAt is set to the current time.
func (m *Me) Post(ctx context.Context, post lexicon.Post) (lexicon.RecordRef, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = m.client.clock.Now().UTC()
	}
	return m.CreateRecord(ctx, CreateRecordRequest{
		Collection: lexicon.CollectionPost,
		Record:     post,
	})
}

// Like likes the referenced record.
func (m *Me) Like(ctx context.Context, subject lexicon.StrongRef) (lexicon.RecordRef, error) {
	return m.CreateRecord(ctx, CreateRecordRequest{
		Collection: lexicon.CollectionLike,
		Record:     lexicon.Like{Subject: subject, CreatedAt: m.client.clock.Now().UTC()},
	})
}

// Follow follows the account with the given DID.
func (m *Me) Follow(ctx context.Context, subject syntax.DID) (lexicon.RecordRef, error) {
	return m.CreateRecord(ctx, CreateRecordRequest{
		Collection: lexicon.CollectionFollow,
		Record:     lexicon.Follow{Subject: subject, CreatedAt: m.client.clock.Now().UTC()},
	})
}

// CreateRecord creates a record in the account's own repository.
// request.Repo is ignored.
func (m *Me) CreateRecord(ctx context.Context, request CreateRecordRequest) (lexicon.RecordRef, error) {
	request.Repo = m.repo()
	return m.client.CreateRecord(ctx, request)
}

// PutRecord writes a record in the account's own repository.
// request.Repo is ignored.
func (m *Me) PutRecord(ctx context.Context, request PutRecordRequest) (lexicon.RecordRef, error) {
	request.Repo = m.repo()
	return m.client.PutRecord(ctx, request)
}

// DeleteRecord deletes a record from the account's own repository.
// request.Repo is ignored.
func (m *Me) DeleteRecord(ctx context.Context, request DeleteRecordRequest) error {
	request.Repo = m.repo()
	return m.client.DeleteRecord(ctx, request)
}

// UploadBlob uploads binary content to the account's PDS.
func (m *Me) UploadBlob(ctx context.Context, data []byte, mediaType string) (lexicon.Blob, error) {
	return m.client.UploadBlob(ctx, data, mediaType)
}

// Profile returns the account's own profile view.
func (m *Me) Profile(ctx context.Context) (*lexicon.ProfileViewDetailed, error) {
	return m.client.profile(ctx, m.repo())
}

type unreadCountOutput struct {
	Count int `json:"count"`
}

// NotificationCount returns the number of unread notifications. A
// non-zero seenAt counts as read everything indexed before it.
func (m *Me) NotificationCount(ctx context.Context, seenAt time.Time) (int, error) {
	var params xrpc.Params
	if !seenAt.IsZero() {
		params.Add("seenAt", seenAt.UTC().Format(datetimeLayout))
	}
	output, err := query[unreadCountOutput](ctx, m.client, methodGetUnreadCount, params, authRequired)
	if err != nil {
		return 0, fmt.Errorf("atproto: notification count: %w", err)
	}
	return output.Count, nil
}

type listNotificationsOutput struct {
	Cursor        string                 `json:"cursor"`
	Notifications []lexicon.Notification `json:"notifications"`
	SeenAt        string                 `json:"seenAt,omitempty"`
}

// ListNotifications fetches one page of notifications, newest first.
func (m *Me) ListNotifications(ctx context.Context, limit int, cursor string) (*Page[lexicon.Notification], error) {
	pageSize, err := pageLimit(limit)
	if err != nil {
		return nil, fmt.Errorf("atproto: list notifications: %w", err)
	}
	var params xrpc.Params
	params.AddInt("limit", pageSize)
	params.AddOptional("cursor", cursor)

	output, err := query[listNotificationsOutput](ctx, m.client, methodListNotifications, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: list notifications: %w", err)
	}
	return &Page[lexicon.Notification]{Cursor: output.Cursor, Items: output.Notifications}, nil
}

// StreamNotifications streams every notification, newest first.
func (m *Me) StreamNotifications(ctx context.Context) (*Stream[lexicon.Notification], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.Notification], error) {
		return m.ListNotifications(ctx, Unbounded, cursor)
	})
}

// UpdateSeen marks every notification up to now as read.
func (m *Me) UpdateSeen(ctx context.Context) error {
	input := map[string]string{"seenAt": m.client.clock.Now().UTC().Format(datetimeLayout)}
	if err := procedureNoContent(ctx, m.client, methodUpdateSeen, input); err != nil {
		return fmt.Errorf("atproto: update seen: %w", err)
	}
	return nil
}

type postThreadOutput struct {
	Thread lexicon.ThreadView `json:"thread"`
}

// PostThread returns the thread around a post: its parents and replies.
func (m *Me) PostThread(ctx context.Context, uri syntax.ATURI) (*lexicon.ThreadView, error) {
	if uri.RecordKey().IsZero() {
		return nil, fmt.Errorf("atproto: post thread: %s does not address a record", uri)
	}
	var params xrpc.Params
	params.Add("uri", uri.String())
	output, err := query[postThreadOutput](ctx, m.client, methodGetPostThread, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: post thread %s: %w", uri, err)
	}
	return &output.Thread, nil
}

// User is scoped to another actor.
type User struct {
	client *Client
	actor  syntax.AtIdentifier
}

// Actor returns the actor this handle is scoped to.
func (u *User) Actor() syntax.AtIdentifier { return u.actor }

func (c *Client) profile(ctx context.Context, actor syntax.AtIdentifier) (*lexicon.ProfileViewDetailed, error) {
	var params xrpc.Params
	params.Add("actor", actor.String())
	profile, err := query[lexicon.ProfileViewDetailed](ctx, c, methodGetProfile, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: profile of %s: %w", actor, err)
	}
	return profile, nil
}

// Profile returns the actor's profile view.
func (u *User) Profile(ctx context.Context) (*lexicon.ProfileViewDetailed, error) {
	return u.client.profile(ctx, u.actor)
}

// ProfileOf returns the profile view of another actor, named by handle
// or DID.
func (u *User) ProfileOf(ctx context.Context, other string) (*lexicon.ProfileViewDetailed, error) {
	actor, err := syntax.ParseAtIdentifier(other)
	if err != nil {
		return nil, fmt.Errorf("atproto: profile: %w", err)
	}
	return u.client.profile(ctx, actor)
}

// ResolveHandle returns the actor's DID, resolving the handle if the
// actor was named by one.
func (u *User) ResolveHandle(ctx context.Context) (syntax.DID, error) {
	if u.client.session == nil {
		return syntax.DID{}, ErrMissingSession
	}
	if did, ok := u.actor.DID(); ok {
		return did, nil
	}
	handle, _ := u.actor.Handle()
	return u.client.resolveHandle(ctx, authRequired, handle)
}

type getLikesOutput struct {
	URI    syntax.ATURI       `json:"uri"`
	Cursor string             `json:"cursor"`
	Likes  []lexicon.LikeView `json:"likes"`
}

// Likes fetches one page of the likes on the record at uri.
func (u *User) Likes(ctx context.Context, uri syntax.ATURI, limit int, cursor string) (*Page[lexicon.LikeView], error) {
	pageSize, err := pageLimit(limit)
	if err != nil {
		return nil, fmt.Errorf("atproto: likes: %w", err)
	}
	var params xrpc.Params
	params.Add("uri", uri.String())
	params.AddInt("limit", pageSize)
	params.AddOptional("cursor", cursor)

	output, err := query[getLikesOutput](ctx, u.client, methodGetLikes, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: likes of %s: %w", uri, err)
	}
	return &Page[lexicon.LikeView]{Cursor: output.Cursor, Items: output.Likes}, nil
}

// StreamLikes streams every like on the record at uri.
func (u *User) StreamLikes(ctx context.Context, uri syntax.ATURI) (*Stream[lexicon.LikeView], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.LikeView], error) {
		return u.Likes(ctx, uri, Unbounded, cursor)
	})
}

type getFollowsOutput struct {
	Cursor  string                `json:"cursor"`
	Follows []lexicon.ProfileView `json:"follows"`
}

type getFollowersOutput struct {
	Cursor    string                `json:"cursor"`
	Followers []lexicon.ProfileView `json:"followers"`
}

func (u *User) graphParams(limit int, cursor string) (xrpc.Params, error) {
	var params xrpc.Params
	pageSize, err := pageLimit(limit)
	if err != nil {
		return params, err
	}
	params.Add("actor", u.actor.String())
	params.AddInt("limit", pageSize)
	params.AddOptional("cursor", cursor)
	return params, nil
}

// Follows fetches one page of the accounts the actor follows.
func (u *User) Follows(ctx context.Context, limit int, cursor string) (*Page[lexicon.ProfileView], error) {
	params, err := u.graphParams(limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("atproto: follows: %w", err)
	}
	output, err := query[getFollowsOutput](ctx, u.client, methodGetFollows, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: follows of %s: %w", u.actor, err)
	}
	return &Page[lexicon.ProfileView]{Cursor: output.Cursor, Items: output.Follows}, nil
}

// StreamFollows streams every account the actor follows.
func (u *User) StreamFollows(ctx context.Context) (*Stream[lexicon.ProfileView], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.ProfileView], error) {
		return u.Follows(ctx, Unbounded, cursor)
	})
}

// Followers fetches one page of the accounts following the actor.
func (u *User) Followers(ctx context.Context, limit int, cursor string) (*Page[lexicon.ProfileView], error) {
	params, err := u.graphParams(limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("atproto: followers: %w", err)
	}
	output, err := query[getFollowersOutput](ctx, u.client, methodGetFollowers, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: followers of %s: %w", u.actor, err)
	}
	return &Page[lexicon.ProfileView]{Cursor: output.Cursor, Items: output.Followers}, nil
}

// StreamFollowers streams every account following the actor.
func (u *User) StreamFollowers(ctx context.Context) (*Stream[lexicon.ProfileView], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.ProfileView], error) {
		return u.Followers(ctx, Unbounded, cursor)
	})
}

type authorFeedOutput struct {
	Cursor string                 `json:"cursor"`
	Feed   []lexicon.FeedViewPost `json:"feed"`
}

// AuthorFeed fetches one page of the actor's posts and reposts,
// hydrated, newest first.
func (u *User) AuthorFeed(ctx context.Context, limit int, cursor string) (*Page[lexicon.FeedViewPost], error) {
	params, err := u.graphParams(limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("atproto: author feed: %w", err)
	}
	output, err := query[authorFeedOutput](ctx, u.client, methodGetAuthorFeed, params, authRequired)
	if err != nil {
		return nil, fmt.Errorf("atproto: author feed of %s: %w", u.actor, err)
	}
	return &Page[lexicon.FeedViewPost]{Cursor: output.Cursor, Items: output.Feed}, nil
}

// StreamAuthorFeed streams the actor's whole feed.
func (u *User) StreamAuthorFeed(ctx context.Context) (*Stream[lexicon.FeedViewPost], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.FeedViewPost], error) {
		return u.AuthorFeed(ctx, Unbounded, cursor)
	})
}

// ListPosts fetches one page of the actor's post records.
func (u *User) ListPosts(ctx context.Context, limit int, cursor string) (*Page[lexicon.Record[lexicon.Post]], error) {
	return UserRecords[lexicon.Post](ctx, u, lexicon.CollectionPost, limit, cursor)
}

// StreamPosts streams every post record in the actor's repository.
func (u *User) StreamPosts(ctx context.Context) (*Stream[lexicon.Record[lexicon.Post]], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.Record[lexicon.Post]], error) {
		return u.ListPosts(ctx, Unbounded, cursor)
	})
}

// UserRecord fetches one record from the actor's repository. Unlike
// GetRecord it requires a session, as every User call does.
func UserRecord[T any](ctx context.Context, u *User, collection syntax.NSID, rkey string) (*lexicon.Record[T], error) {
	return getRecord[T](ctx, u.client, authRequired, u.actor, collection, rkey)
}

// UserRecords fetches one page of a collection in the actor's
// repository. It requires a session.
func UserRecords[T any](ctx context.Context, u *User, collection syntax.NSID, limit int, cursor string) (*Page[lexicon.Record[T]], error) {
	return listRecords[T](ctx, u.client, authRequired, ListRecordsRequest{
		Repo:       u.actor,
		Collection: collection,
		Limit:      limit,
		Cursor:     cursor,
	})
}
