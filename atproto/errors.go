// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import "errors"

// ErrMissingSession is returned by operations that need a logged-in
// session when the Client holds none. No request is sent.
var ErrMissingSession = errors.New("atproto: no session (log in first)")

// ErrBlobMismatch is returned by UploadBlob when the blob reference the
// server returns does not match the uploaded bytes.
var ErrBlobMismatch = errors.New("atproto: uploaded blob does not match server reference")

// Stream termination errors.
var (
	// ErrStreamDone is returned by Stream.Next after the last item.
	ErrStreamDone = errors.New("atproto: stream done")

	// ErrStreamFailed is returned by every Stream.Next call after a
	// page fetch has failed. It wraps the original failure.
	ErrStreamFailed = errors.New("atproto: stream failed")

	// ErrCursorStalled ends a stream whose server returned a cursor
	// the stream had already requested.
	ErrCursorStalled = errors.New("atproto: server repeated a pagination cursor")
)
