// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/xrpc"
)

const (
	methodCreateRecord  = "com.atproto.repo.createRecord"
	methodPutRecord     = "com.atproto.repo.putRecord"
	methodGetRecord     = "com.atproto.repo.getRecord"
	methodDeleteRecord  = "com.atproto.repo.deleteRecord"
	methodListRecords   = "com.atproto.repo.listRecords"
	methodUploadBlob    = "com.atproto.repo.uploadBlob"
	methodResolveHandle = "com.atproto.identity.resolveHandle"
)

// MaxPageSize is the largest page the protocol allows a list call to
// request.
const MaxPageSize = 100

// Unbounded as a page limit lets the server fill pages up to
// MaxPageSize.
const Unbounded = 0

// Page is one page of a cursor-paginated collection. An empty Cursor
// means there are no further pages.
type Page[T any] struct {
	Cursor string
	Items  []T
}

// HasMore reports whether another page can be requested.
func (p *Page[T]) HasMore() bool {
	return p.Cursor != ""
}

// pageLimit validates a caller-supplied limit and maps Unbounded to
// the protocol maximum.
func pageLimit(limit int) (int, error) {
	if limit == Unbounded {
		return MaxPageSize, nil
	}
	if limit < 0 || limit > MaxPageSize {
		return 0, fmt.Errorf("limit %d out of range 1..%d", limit, MaxPageSize)
	}
	return limit, nil
}

// CreateRecordRequest describes a new record.
type CreateRecordRequest struct {
	Repo       syntax.AtIdentifier
	Collection syntax.NSID
	// Record is JSON-encoded. lexicon record types include their own
	// "$type"; other values must carry it themselves.
	Record any
	// RKey, if empty, lets the server assign a fresh record key.
	RKey     string
	Validate *bool
	// SwapCommit, if set, makes the write conditional on the repo's
	// current commit CID.
	SwapCommit string
}

type createRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey,omitempty"`
	Validate   *bool  `json:"validate,omitempty"`
	Record     any    `json:"record"`
	SwapCommit string `json:"swapCommit,omitempty"`
}

// CreateRecord writes a new record and returns its location. The
// server never overwrites: a create with an RKey that already exists
// fails.
func (c *Client) CreateRecord(ctx context.Context, request CreateRecordRequest) (lexicon.RecordRef, error) {
	if c.session == nil {
		return lexicon.RecordRef{}, ErrMissingSession
	}
	if err := checkWriteTarget(request.Repo, request.Collection, request.Record); err != nil {
		return lexicon.RecordRef{}, fmt.Errorf("atproto: create record: %w", err)
	}
	if request.RKey != "" {
		if _, err := syntax.ParseRecordKey(request.RKey); err != nil {
			return lexicon.RecordRef{}, fmt.Errorf("atproto: create record: %w", err)
		}
	}

	input := createRecordInput{
		Repo:       request.Repo.String(),
		Collection: request.Collection.String(),
		RKey:       request.RKey,
		Validate:   request.Validate,
		Record:     request.Record,
		SwapCommit: request.SwapCommit,
	}
	ref, err := procedure[lexicon.RecordRef](ctx, c, methodCreateRecord, input)
	if err != nil {
		return lexicon.RecordRef{}, fmt.Errorf("atproto: create record in %s: %w", request.Collection, err)
	}
	c.logger.Info("record created", "uri", ref.URI, "cid", ref.CID)
	return *ref, nil
}

// PutRecordRequest describes a create-or-replace at a known key.
type PutRecordRequest struct {
	Repo       syntax.AtIdentifier
	Collection syntax.NSID
	RKey       string
	Record     any
	Validate   *bool
	// SwapRecord, if set, makes the write conditional on the record's
	// current CID.
	SwapRecord string
	SwapCommit string
}

type putRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
	Validate   *bool  `json:"validate,omitempty"`
	Record     any    `json:"record"`
	SwapRecord string `json:"swapRecord,omitempty"`
	SwapCommit string `json:"swapCommit,omitempty"`
}

// PutRecord creates or replaces the record at RKey.
func (c *Client) PutRecord(ctx context.Context, request PutRecordRequest) (lexicon.RecordRef, error) {
	if c.session == nil {
		return lexicon.RecordRef{}, ErrMissingSession
	}
	if err := checkWriteTarget(request.Repo, request.Collection, request.Record); err != nil {
		return lexicon.RecordRef{}, fmt.Errorf("atproto: put record: %w", err)
	}
	if _, err := syntax.ParseRecordKey(request.RKey); err != nil {
		return lexicon.RecordRef{}, fmt.Errorf("atproto: put record: %w", err)
	}

	input := putRecordInput{
		Repo:       request.Repo.String(),
		Collection: request.Collection.String(),
		RKey:       request.RKey,
		Validate:   request.Validate,
		Record:     request.Record,
		SwapRecord: request.SwapRecord,
		SwapCommit: request.SwapCommit,
	}
	ref, err := procedure[lexicon.RecordRef](ctx, c, methodPutRecord, input)
	if err != nil {
		return lexicon.RecordRef{}, fmt.Errorf("atproto: put record %s/%s: %w", request.Collection, request.RKey, err)
	}
	c.logger.Info("record written", "uri", ref.URI, "cid", ref.CID)
	return *ref, nil
}

// DeleteRecordRequest names a record to delete.
type DeleteRecordRequest struct {
	Repo       syntax.AtIdentifier
	Collection syntax.NSID
	RKey       string
	SwapRecord string
	SwapCommit string
}

type deleteRecordInput struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	RKey       string `json:"rkey"`
	SwapRecord string `json:"swapRecord,omitempty"`
	SwapCommit string `json:"swapCommit,omitempty"`
}

// DeleteRecord removes a record. Whatever the server reports for a
// record that does not exist is returned as is.
func (c *Client) DeleteRecord(ctx context.Context, request DeleteRecordRequest) error {
	if c.session == nil {
		return ErrMissingSession
	}
	if request.Repo.IsZero() || request.Collection.IsZero() {
		return fmt.Errorf("atproto: delete record: repo and collection are required")
	}
	if _, err := syntax.ParseRecordKey(request.RKey); err != nil {
		return fmt.Errorf("atproto: delete record: %w", err)
	}

	input := deleteRecordInput{
		Repo:       request.Repo.String(),
		Collection: request.Collection.String(),
		RKey:       request.RKey,
		SwapRecord: request.SwapRecord,
		SwapCommit: request.SwapCommit,
	}
	if err := procedureNoContent(ctx, c, methodDeleteRecord, input); err != nil {
		return fmt.Errorf("atproto: delete record %s/%s: %w", request.Collection, request.RKey, err)
	}
	c.logger.Info("record deleted",
		"repo", request.Repo,
		"collection", request.Collection,
		"rkey", request.RKey,
	)
	return nil
}

func checkWriteTarget(repo syntax.AtIdentifier, collection syntax.NSID, record any) error {
	if repo.IsZero() {
		return fmt.Errorf("repo is required")
	}
	if collection.IsZero() {
		return fmt.Errorf("collection is required")
	}
	if record == nil {
		return fmt.Errorf("record is required")
	}
	return nil
}

// GetRecord fetches one record and decodes its value into T. The call
// is authorized when a session is held and anonymous otherwise.
func GetRecord[T any](ctx context.Context, c *Client, repo syntax.AtIdentifier, collection syntax.NSID, rkey string) (*lexicon.Record[T], error) {
	return getRecord[T](ctx, c, authOptional, repo, collection, rkey)
}

func getRecord[T any](ctx context.Context, c *Client, mode authMode, repo syntax.AtIdentifier, collection syntax.NSID, rkey string) (*lexicon.Record[T], error) {
	if _, err := syntax.ParseRecordKey(rkey); err != nil {
		return nil, fmt.Errorf("atproto: get record: %w", err)
	}
	var params xrpc.Params
	params.Add("repo", repo.String())
	params.Add("collection", collection.String())
	params.Add("rkey", rkey)

	record, err := query[lexicon.Record[T]](ctx, c, methodGetRecord, params, mode)
	if err != nil {
		return nil, fmt.Errorf("atproto: get record %s/%s: %w", collection, rkey, err)
	}
	return record, nil
}

// ListRecordsRequest selects a page of a collection.
type ListRecordsRequest struct {
	Repo       syntax.AtIdentifier
	Collection syntax.NSID
	// Limit is the page size; Unbounded requests MaxPageSize.
	Limit   int
	Reverse bool
	Cursor  string
}

type listRecordsOutput[T any] struct {
	Cursor  string              `json:"cursor"`
	Records []lexicon.Record[T] `json:"records"`
}

// ListRecords fetches one page of a collection, decoding each value
// into T.
func ListRecords[T any](ctx context.Context, c *Client, request ListRecordsRequest) (*Page[lexicon.Record[T]], error) {
	return listRecords[T](ctx, c, authOptional, request)
}

func listRecords[T any](ctx context.Context, c *Client, mode authMode, request ListRecordsRequest) (*Page[lexicon.Record[T]], error) {
	limit, err := pageLimit(request.Limit)
	if err != nil {
		return nil, fmt.Errorf("atproto: list records: %w", err)
	}
	var params xrpc.Params
	params.Add("repo", request.Repo.String())
	params.Add("collection", request.Collection.String())
	params.AddInt("limit", limit)
	if request.Reverse {
		params.AddBool("reverse", true)
	}
	params.AddOptional("cursor", request.Cursor)

	output, err := query[listRecordsOutput[T]](ctx, c, methodListRecords, params, mode)
	if err != nil {
		return nil, fmt.Errorf("atproto: list records in %s: %w", request.Collection, err)
	}
	return &Page[lexicon.Record[T]]{Cursor: output.Cursor, Items: output.Records}, nil
}

type uploadBlobOutput struct {
	Blob lexicon.Blob `json:"blob"`
}

// UploadBlob uploads binary content and returns the reference to embed
// in a record. The returned reference is checked against the CID and
// size computed locally from data; a disagreement is ErrBlobMismatch.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mediaType string) (lexicon.Blob, error) {
	if c.session == nil {
		return lexicon.Blob{}, ErrMissingSession
	}
	if mediaType == "" {
		return lexicon.Blob{}, fmt.Errorf("atproto: upload blob: media type is required")
	}
	expected, err := lexicon.ComputeBlobCID(data)
	if err != nil {
		return lexicon.Blob{}, fmt.Errorf("atproto: upload blob: %w", err)
	}

	var output *uploadBlobOutput
	err = c.withAuth(ctx, authRequired, func(token string) error {
		var err error
		output, err = xrpc.Upload[uploadBlobOutput](ctx, c.xrpc, methodUploadBlob, bytes.NewReader(data), mediaType, token)
		return err
	})
	if err != nil {
		return lexicon.Blob{}, fmt.Errorf("atproto: upload blob: %w", err)
	}

	blob := output.Blob
	if !blob.Ref.CID().Equals(expected) {
		return lexicon.Blob{}, fmt.Errorf("%w: server ref %s, computed %s", ErrBlobMismatch, blob.Ref, expected)
	}
	if blob.Size != int64(len(data)) {
		return lexicon.Blob{}, fmt.Errorf("%w: server size %d, uploaded %d bytes", ErrBlobMismatch, blob.Size, len(data))
	}
	c.logger.Info("blob uploaded", "cid", blob.Ref, "size", blob.Size, "mime_type", blob.MimeType)
	return blob, nil
}

type resolveHandleOutput struct {
	DID syntax.DID `json:"did"`
}

// ResolveHandle maps a handle to its DID. No session is needed.
func (c *Client) ResolveHandle(ctx context.Context, handle syntax.Handle) (syntax.DID, error) {
	return c.resolveHandle(ctx, authOptional, handle)
}

func (c *Client) resolveHandle(ctx context.Context, mode authMode, handle syntax.Handle) (syntax.DID, error) {
	if handle.IsZero() {
		return syntax.DID{}, fmt.Errorf("atproto: resolve handle: handle is required")
	}
	var params xrpc.Params
	params.Add("handle", handle.String())
	output, err := query[resolveHandleOutput](ctx, c, methodResolveHandle, params, mode)
	if err != nil {
		return syntax.DID{}, fmt.Errorf("atproto: resolve handle %s: %w", handle, err)
	}
	if output.DID.IsZero() {
		return syntax.DID{}, &xrpc.DecodeError{Method: methodResolveHandle, Path: "did", Err: fmt.Errorf("missing did")}
	}
	return output.DID, nil
}
