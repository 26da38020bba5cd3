// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
)

// PageFunc fetches the page that starts at cursor. The first call
// receives an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

type streamState int

const (
	// streamBuffered: items from the last page remain, or more pages
	// can be fetched.
	streamBuffered streamState = iota
	// streamExhausted: the last page has been drained.
	streamExhausted
	// streamFailed: a fetch failed; the stream is terminal.
	streamFailed
)

// Stream yields the items of a cursor-paginated collection in server
// order, fetching the next page only when the current one is drained.
// There is no prefetch and no restart: once exhausted or failed, a
// Stream stays that way. A page whose cursor was already requested
// earlier in the stream fails it with ErrCursorStalled, so a server
// that cycles through cursors cannot make it loop.
//
// A Stream is not safe for concurrent use.
type Stream[T any] struct {
	fetch  PageFunc[T]
	buffer []T
	cursor string
	state  streamState
	err    error
	// requested holds every non-empty cursor already fetched.
	requested map[string]struct{}
}

// OpenStream performs the first fetch and returns a stream positioned
// before the first item. A failure of the first fetch is returned
// directly.
func OpenStream[T any](ctx context.Context, fetch PageFunc[T]) (*Stream[T], error) {
	stream := &Stream[T]{fetch: fetch, requested: make(map[string]struct{})}
	if err := stream.fetchPage(ctx); err != nil {
		return nil, err
	}
	return stream, nil
}

// Next returns the next item. It returns ErrStreamDone after the last
// item. When fetching a page fails, that call returns the fetch error;
// every later call returns ErrStreamFailed wrapping it and performs no
// I/O.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		switch s.state {
		case streamFailed:
			return zero, fmt.Errorf("%w: %w", ErrStreamFailed, s.err)
		case streamExhausted:
			return zero, ErrStreamDone
		}

		if len(s.buffer) > 0 {
			item := s.buffer[0]
			s.buffer[0] = zero
			s.buffer = s.buffer[1:]
			return item, nil
		}
		if s.cursor == "" {
			s.state = streamExhausted
			return zero, ErrStreamDone
		}
		if err := s.fetchPage(ctx); err != nil {
			return zero, err
		}
	}
}

// fetchPage requests the page at the current cursor and installs it.
func (s *Stream[T]) fetchPage(ctx context.Context) error {
	requested := s.cursor
	if requested != "" {
		s.requested[requested] = struct{}{}
	}
	page, err := s.fetch(ctx, requested)
	if err != nil {
		s.fail(err)
		return err
	}
	if page == nil {
		page = &Page[T]{}
	}
	if _, seen := s.requested[page.Cursor]; seen {
		err := fmt.Errorf("%w: %q", ErrCursorStalled, page.Cursor)
		s.fail(err)
		return err
	}
	s.buffer = page.Items
	s.cursor = page.Cursor
	return nil
}

func (s *Stream[T]) fail(err error) {
	s.state = streamFailed
	s.err = err
	s.buffer = nil
}

// All adapts the stream to a range-over-func sequence. Iteration stops
// after the last item, or after yielding a failure once.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := s.Next(ctx)
			if errors.Is(err, ErrStreamDone) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Collect drains the stream into a slice. On failure the items read so
// far are returned with the error.
func (s *Stream[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for item, err := range s.All(ctx) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// StreamRecords streams every record of a collection, MaxPageSize at a
// time.
func StreamRecords[T any](ctx context.Context, c *Client, repo syntax.AtIdentifier, collection syntax.NSID) (*Stream[lexicon.Record[T]], error) {
	return OpenStream(ctx, func(ctx context.Context, cursor string) (*Page[lexicon.Record[T]], error) {
		return ListRecords[T](ctx, c, ListRecordsRequest{
			Repo:       repo,
			Collection: collection,
			Limit:      Unbounded,
			Cursor:     cursor,
		})
	})
}
