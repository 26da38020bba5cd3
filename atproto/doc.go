// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atproto is a typed client for an AT Protocol PDS.
//
// A [Client] owns at most one [Session]. [Client.Login] creates it,
// [Client.RefreshSession] replaces it, and [Client.Logout] ends it.
// The session is always replaced as a whole, never field by field.
// When a session is held its access token is attached to every call;
// reads and handle resolution also work without one.
//
// Repository operations ([Client.CreateRecord], [Client.PutRecord],
// [GetRecord], [Client.DeleteRecord], [ListRecords],
// [Client.UploadBlob]) are generic over the record type. Record types
// for app.bsky live in the lexicon package.
//
// [Me] and [User] scope calls to the logged-in account or to another
// actor. Both require a session: constructing either without one fails
// with [ErrMissingSession] before any network I/O.
//
// Cursor-paginated collections are consumed through [Stream], which
// fetches one page at a time as items are drained:
//
//	stream, err := me.StreamNotifications(ctx)
//	if err != nil {
//	    return err
//	}
//	for notification, err := range stream.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(notification.Reason, notification.Author.Handle)
//	}
//
// A Client is not safe for concurrent use: the session is read and
// replaced without locking. Use one Client per goroutine, or serialize
// access externally.
package atproto
