// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atproto

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bureau-foundation/atproto/lexicon"
	"github.com/bureau-foundation/atproto/lib/clock"
)

// testEpoch is the fake clock's starting time in every test.
var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	aliceDID      = "did:plc:alice"
	aliceHandle   = "alice.test"
	alicePassword = "correct horse"
	bobDID        = "did:plc:bob"
	bobHandle     = "bob.test"
)

// fakePDS is an in-memory PDS speaking enough XRPC for the client's
// session lifecycle, repository operations, and notifications.
type fakePDS struct {
	t      *testing.T
	server *httptest.Server
	clock  *clock.FakeClock

	mu            sync.Mutex
	accounts      []fakeAccount
	accessTokens  map[string]string // token -> DID
	refreshTokens map[string]string // token -> DID
	expired       map[string]bool   // access tokens reported as expired
	expireIssued  bool              // every newly issued access token is already expired
	tokenSerial   int
	repos         map[string]*fakeRepo
	blobs         map[string][]byte
	corruptBlobs  bool
	notifications []json.RawMessage
	unread        int
	seenAt        string
	calls         map[string]int
	requests      []fakeRequest
	overrides     map[string]http.HandlerFunc
	failures      map[string]fakeFailure
}

type fakeAccount struct {
	did      string
	handle   string
	password string
}

type fakeRepo struct {
	records  map[string]map[string]fakeRecord // collection -> rkey -> record
	revision int
	serial   int
}

type fakeRecord struct {
	cid   string
	value json.RawMessage
}

type fakeRequest struct {
	method        string
	query         string
	authorization string
}

type fakeFailure struct {
	onCall int
	status int
	body   string
}

func newFakePDS(t *testing.T) *fakePDS {
	t.Helper()
	pds := &fakePDS{
		t:     t,
		clock: clock.Fake(testEpoch),
		accounts: []fakeAccount{
			{did: aliceDID, handle: aliceHandle, password: alicePassword},
			{did: bobDID, handle: bobHandle, password: "bob password"},
		},
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		expired:       make(map[string]bool),
		repos:         make(map[string]*fakeRepo),
		blobs:         make(map[string][]byte),
		calls:         make(map[string]int),
		overrides:     make(map[string]http.HandlerFunc),
		failures:      make(map[string]fakeFailure),
	}
	pds.server = httptest.NewServer(http.HandlerFunc(pds.serveHTTP))
	t.Cleanup(pds.server.Close)
	return pds
}

// newClient returns a Client against the fake PDS sharing its clock.
func (pds *fakePDS) newClient(autoRefresh bool) *Client {
	pds.t.Helper()
	client, err := NewClient(ClientConfig{
		Service:     pds.server.URL,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:       pds.clock,
		AutoRefresh: autoRefresh,
	})
	if err != nil {
		pds.t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

// loggedInClient returns a Client logged in as alice.
func (pds *fakePDS) loggedInClient() *Client {
	pds.t.Helper()
	client := pds.newClient(false)
	if _, err := client.Login(pds.t.Context(), aliceHandle, alicePassword); err != nil {
		pds.t.Fatalf("Login failed: %v", err)
	}
	return client
}

func (pds *fakePDS) callCount(method string) int {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	return pds.calls[method]
}

func (pds *fakePDS) totalCalls() int {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	total := 0
	for _, count := range pds.calls {
		total += count
	}
	return total
}

func (pds *fakePDS) lastRequest(method string) fakeRequest {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	for i := len(pds.requests) - 1; i >= 0; i-- {
		if pds.requests[i].method == method {
			return pds.requests[i]
		}
	}
	pds.t.Fatalf("no %s request recorded", method)
	return fakeRequest{}
}

// queries returns the raw query of every call to method, in order.
func (pds *fakePDS) queries(method string) []string {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	var queries []string
	for _, request := range pds.requests {
		if request.method == method {
			queries = append(queries, request.query)
		}
	}
	return queries
}

// expireAccessTokens makes every outstanding access token report
// ExpiredToken.
func (pds *fakePDS) expireAccessTokens() {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	for token := range pds.accessTokens {
		pds.expired[token] = true
	}
}

// failOn makes the onCall-th call of method (1-based) fail with the
// given status and body.
func (pds *fakePDS) failOn(method string, onCall, status int, body string) {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	pds.failures[method] = fakeFailure{onCall: onCall, status: status, body: body}
}

// handle installs a handler for a method the fake does not implement.
func (pds *fakePDS) handle(method string, handler http.HandlerFunc) {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	pds.overrides[method] = handler
}

func (pds *fakePDS) addNotification(t *testing.T, notification map[string]any) {
	t.Helper()
	data, err := json.Marshal(notification)
	if err != nil {
		t.Fatalf("encoding notification: %v", err)
	}
	pds.mu.Lock()
	defer pds.mu.Unlock()
	pds.notifications = append(pds.notifications, data)
	pds.unread++
}

func (pds *fakePDS) recordCount(did, collection string) int {
	pds.mu.Lock()
	defer pds.mu.Unlock()
	repo, ok := pds.repos[did]
	if !ok {
		return 0
	}
	return len(repo.records[collection])
}

func (pds *fakePDS) serveHTTP(writer http.ResponseWriter, request *http.Request) {
	method, ok := strings.CutPrefix(request.URL.Path, "/xrpc/")
	if !ok {
		http.NotFound(writer, request)
		return
	}

	pds.mu.Lock()
	pds.calls[method]++
	callNumber := pds.calls[method]
	pds.requests = append(pds.requests, fakeRequest{
		method:        method,
		query:         request.URL.RawQuery,
		authorization: request.Header.Get("Authorization"),
	})
	failure, hasFailure := pds.failures[method]
	override := pds.overrides[method]
	pds.mu.Unlock()

	if hasFailure && failure.onCall == callNumber {
		writer.WriteHeader(failure.status)
		writer.Write([]byte(failure.body))
		return
	}
	if override != nil {
		override(writer, request)
		return
	}

	pds.mu.Lock()
	defer pds.mu.Unlock()

	switch method {
	case methodCreateSession:
		pds.createSession(writer, request)
	case methodRefreshSession:
		pds.refreshSession(writer, request)
	case methodDeleteSession:
		pds.deleteSession(writer, request)
	case methodGetSession:
		pds.getSession(writer, request)
	case methodCreateRecord:
		pds.createRecord(writer, request)
	case methodPutRecord:
		pds.putRecord(writer, request)
	case methodGetRecord:
		pds.getRecord(writer, request)
	case methodDeleteRecord:
		pds.deleteRecord(writer, request)
	case methodListRecords:
		pds.listRecords(writer, request)
	case methodUploadBlob:
		pds.uploadBlob(writer, request)
	case methodResolveHandle:
		pds.resolveHandle(writer, request)
	case methodListNotifications:
		pds.listNotifications(writer, request)
	case methodGetUnreadCount:
		pds.getUnreadCount(writer, request)
	case methodUpdateSeen:
		pds.updateSeen(writer, request)
	default:
		writeXRPCError(writer, http.StatusNotImplemented, "MethodNotImplemented", "Method Not Implemented")
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func writeXRPCError(writer http.ResponseWriter, status int, kind, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(map[string]string{"error": kind, "message": message})
}

func bearerToken(request *http.Request) string {
	token, _ := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
	return token
}

// issueTokens mints an access/refresh pair. Both are real HS256 JWTs so
// the client can read their expiry.
func (pds *fakePDS) issueTokens(did string) (string, string) {
	now := pds.clock.Now()
	mint := func(kind string, ttl time.Duration) string {
		pds.tokenSerial++
		claims := jwt.RegisteredClaims{
			Subject:   did,
			Audience:  jwt.ClaimStrings{kind},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        strconv.Itoa(pds.tokenSerial),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-pds-secret"))
		if err != nil {
			pds.t.Errorf("signing token: %v", err)
		}
		return token
	}
	access := mint("access", 2*time.Hour)
	refresh := mint("refresh", 90*24*time.Hour)
	pds.accessTokens[access] = did
	pds.refreshTokens[refresh] = did
	if pds.expireIssued {
		pds.expired[access] = true
	}
	return access, refresh
}

func (pds *fakePDS) account(identifier string) (fakeAccount, bool) {
	for _, account := range pds.accounts {
		if account.did == identifier || account.handle == identifier {
			return account, true
		}
	}
	return fakeAccount{}, false
}

// authenticate resolves the access token to a DID, writing the error
// response and returning false when it is missing or bad.
func (pds *fakePDS) authenticate(writer http.ResponseWriter, request *http.Request) (string, bool) {
	token := bearerToken(request)
	if token == "" {
		writeXRPCError(writer, http.StatusUnauthorized, "AuthenticationRequired", "Authentication Required")
		return "", false
	}
	if pds.expired[token] {
		writeXRPCError(writer, http.StatusBadRequest, "ExpiredToken", "Token has expired")
		return "", false
	}
	did, ok := pds.accessTokens[token]
	if !ok {
		writeXRPCError(writer, http.StatusUnauthorized, "InvalidToken", "Token could not be verified")
		return "", false
	}
	return did, true
}

func (pds *fakePDS) sessionResponse(writer http.ResponseWriter, did string) {
	account, _ := pds.account(did)
	access, refresh := pds.issueTokens(did)
	writeJSON(writer, map[string]any{
		"did":        account.did,
		"handle":     account.handle,
		"accessJwt":  access,
		"refreshJwt": refresh,
	})
}

func (pds *fakePDS) createSession(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	account, ok := pds.account(input.Identifier)
	if !ok || account.password != input.Password {
		writeXRPCError(writer, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
		return
	}
	pds.sessionResponse(writer, account.did)
}

func (pds *fakePDS) refreshSession(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	did, ok := pds.refreshTokens[token]
	if !ok {
		writeXRPCError(writer, http.StatusBadRequest, "ExpiredToken", "Token has been revoked")
		return
	}
	delete(pds.refreshTokens, token)
	pds.sessionResponse(writer, did)
}

func (pds *fakePDS) deleteSession(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if _, ok := pds.refreshTokens[token]; !ok {
		writeXRPCError(writer, http.StatusBadRequest, "ExpiredToken", "Token has been revoked")
		return
	}
	delete(pds.refreshTokens, token)
	writer.WriteHeader(http.StatusOK)
}

func (pds *fakePDS) getSession(writer http.ResponseWriter, request *http.Request) {
	did, ok := pds.authenticate(writer, request)
	if !ok {
		return
	}
	account, _ := pds.account(did)
	writeJSON(writer, map[string]any{"did": account.did, "handle": account.handle, "active": true})
}

func (pds *fakePDS) repo(did string) *fakeRepo {
	repo, ok := pds.repos[did]
	if !ok {
		repo = &fakeRepo{records: make(map[string]map[string]fakeRecord)}
		pds.repos[did] = repo
	}
	return repo
}

func (r *fakeRepo) commitCID() string {
	c, _ := lexicon.ComputeBlobCID([]byte("commit " + strconv.Itoa(r.revision)))
	return c.String()
}

// nextRecordKey returns increasing, TID-shaped keys.
func (r *fakeRepo) nextRecordKey() string {
	r.serial++
	return fmt.Sprintf("3kfake%07d", r.serial)
}

type writeInput struct {
	Repo       string          `json:"repo"`
	Collection string          `json:"collection"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record"`
	SwapRecord *string         `json:"swapRecord"`
	SwapCommit *string         `json:"swapCommit"`
}

// beginWrite authenticates a write and checks the commit precondition.
func (pds *fakePDS) beginWrite(writer http.ResponseWriter, request *http.Request) (*fakeRepo, writeInput, bool) {
	did, ok := pds.authenticate(writer, request)
	if !ok {
		return nil, writeInput{}, false
	}
	var input writeInput
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", err.Error())
		return nil, writeInput{}, false
	}
	if account, _ := pds.account(did); input.Repo != account.did && input.Repo != account.handle {
		writeXRPCError(writer, http.StatusUnauthorized, "InvalidRequest", "Invalid did")
		return nil, writeInput{}, false
	}
	repo := pds.repo(did)
	if input.SwapCommit != nil && *input.SwapCommit != repo.commitCID() {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidSwap", "Commit was at "+repo.commitCID())
		return nil, writeInput{}, false
	}
	return repo, input, true
}

func (pds *fakePDS) store(writer http.ResponseWriter, repo *fakeRepo, did string, input writeInput) {
	recordCID, _ := lexicon.ComputeBlobCID(input.Record)
	if repo.records[input.Collection] == nil {
		repo.records[input.Collection] = make(map[string]fakeRecord)
	}
	repo.records[input.Collection][input.RKey] = fakeRecord{cid: recordCID.String(), value: input.Record}
	repo.revision++
	writeJSON(writer, map[string]any{
		"uri":    "at://" + did + "/" + input.Collection + "/" + input.RKey,
		"cid":    recordCID.String(),
		"commit": map[string]any{"cid": repo.commitCID(), "rev": strconv.Itoa(repo.revision)},
	})
}

func (pds *fakePDS) createRecord(writer http.ResponseWriter, request *http.Request) {
	repo, input, ok := pds.beginWrite(writer, request)
	if !ok {
		return
	}
	if input.RKey == "" {
		input.RKey = repo.nextRecordKey()
	}
	if _, exists := repo.records[input.Collection][input.RKey]; exists {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", "Record already exists")
		return
	}
	did := pds.accessTokens[bearerToken(request)]
	pds.store(writer, repo, did, input)
}

func (pds *fakePDS) putRecord(writer http.ResponseWriter, request *http.Request) {
	repo, input, ok := pds.beginWrite(writer, request)
	if !ok {
		return
	}
	if input.SwapRecord != nil {
		existing, exists := repo.records[input.Collection][input.RKey]
		if !exists || existing.cid != *input.SwapRecord {
			writeXRPCError(writer, http.StatusBadRequest, "InvalidSwap", "Record was at "+existing.cid)
			return
		}
	}
	did := pds.accessTokens[bearerToken(request)]
	pds.store(writer, repo, did, input)
}

func (pds *fakePDS) deleteRecord(writer http.ResponseWriter, request *http.Request) {
	repo, input, ok := pds.beginWrite(writer, request)
	if !ok {
		return
	}
	existing, exists := repo.records[input.Collection][input.RKey]
	if input.SwapRecord != nil && (!exists || existing.cid != *input.SwapRecord) {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidSwap", "Record was at "+existing.cid)
		return
	}
	if exists {
		delete(repo.records[input.Collection], input.RKey)
		repo.revision++
	}
	writeJSON(writer, map[string]any{"commit": map[string]any{"cid": repo.commitCID()}})
}

// resolveRepo maps a repo parameter (DID or handle) to a DID.
func (pds *fakePDS) resolveRepo(repo string) string {
	if account, ok := pds.account(repo); ok {
		return account.did
	}
	return repo
}

// optionalAuth validates the bearer token only when one is sent.
func (pds *fakePDS) optionalAuth(writer http.ResponseWriter, request *http.Request) bool {
	if request.Header.Get("Authorization") == "" {
		return true
	}
	_, ok := pds.authenticate(writer, request)
	return ok
}

func (pds *fakePDS) getRecord(writer http.ResponseWriter, request *http.Request) {
	if !pds.optionalAuth(writer, request) {
		return
	}
	query := request.URL.Query()
	did := pds.resolveRepo(query.Get("repo"))
	collection, rkey := query.Get("collection"), query.Get("rkey")
	uri := "at://" + did + "/" + collection + "/" + rkey

	record, ok := pds.repo(did).records[collection][rkey]
	if !ok {
		writeXRPCError(writer, http.StatusBadRequest, "RecordNotFound", "Could not locate record: "+uri)
		return
	}
	writeJSON(writer, map[string]any{"uri": uri, "cid": record.cid, "value": record.value})
}

func (pds *fakePDS) listRecords(writer http.ResponseWriter, request *http.Request) {
	if !pds.optionalAuth(writer, request) {
		return
	}
	query := request.URL.Query()
	did := pds.resolveRepo(query.Get("repo"))
	collection := query.Get("collection")
	limit := 50
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", "limit must be 1..100")
			return
		}
		limit = parsed
	}

	records := pds.repo(did).records[collection]
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	// Newest first unless reversed; TID-shaped keys sort by time.
	slices.Sort(keys)
	reverse := query.Get("reverse") == "true"
	if !reverse {
		slices.Reverse(keys)
	}
	if cursor := query.Get("cursor"); cursor != "" {
		index := slices.IndexFunc(keys, func(key string) bool {
			if reverse {
				return key > cursor
			}
			return key < cursor
		})
		if index < 0 {
			keys = nil
		} else {
			keys = keys[index:]
		}
	}

	page := keys
	nextCursor := ""
	if len(keys) > limit {
		page = keys[:limit]
		nextCursor = page[len(page)-1]
	}
	items := make([]map[string]any, 0, len(page))
	for _, key := range page {
		items = append(items, map[string]any{
			"uri":   "at://" + did + "/" + collection + "/" + key,
			"cid":   records[key].cid,
			"value": records[key].value,
		})
	}
	output := map[string]any{"records": items}
	if nextCursor != "" {
		output["cursor"] = nextCursor
	}
	writeJSON(writer, output)
}

func (pds *fakePDS) uploadBlob(writer http.ResponseWriter, request *http.Request) {
	if _, ok := pds.authenticate(writer, request); !ok {
		return
	}
	data, err := io.ReadAll(request.Body)
	if err != nil {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}
	stored := data
	if pds.corruptBlobs {
		stored = append([]byte("corrupted:"), data...)
	}
	blobCID, _ := lexicon.ComputeBlobCID(stored)
	pds.blobs[blobCID.String()] = stored
	writeJSON(writer, map[string]any{"blob": map[string]any{
		"$type":    "blob",
		"ref":      map[string]string{"$link": blobCID.String()},
		"mimeType": request.Header.Get("Content-Type"),
		"size":     len(data),
	}})
}

func (pds *fakePDS) resolveHandle(writer http.ResponseWriter, request *http.Request) {
	account, ok := pds.account(request.URL.Query().Get("handle"))
	if !ok {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", "Unable to resolve handle")
		return
	}
	writeJSON(writer, map[string]string{"did": account.did})
}

func (pds *fakePDS) listNotifications(writer http.ResponseWriter, request *http.Request) {
	if _, ok := pds.authenticate(writer, request); !ok {
		return
	}
	query := request.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	start := 0
	if cursor := query.Get("cursor"); cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+limit, len(pds.notifications))
	page := []json.RawMessage{}
	if start < end {
		page = pds.notifications[start:end]
	}
	output := map[string]any{"notifications": page}
	if end < len(pds.notifications) {
		output["cursor"] = strconv.Itoa(end)
	}
	writeJSON(writer, output)
}

func (pds *fakePDS) getUnreadCount(writer http.ResponseWriter, request *http.Request) {
	if _, ok := pds.authenticate(writer, request); !ok {
		return
	}
	writeJSON(writer, map[string]int{"count": pds.unread})
}

func (pds *fakePDS) updateSeen(writer http.ResponseWriter, request *http.Request) {
	if _, ok := pds.authenticate(writer, request); !ok {
		return
	}
	var input struct {
		SeenAt string `json:"seenAt"`
	}
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil || input.SeenAt == "" {
		writeXRPCError(writer, http.StatusBadRequest, "InvalidRequest", "seenAt is required")
		return
	}
	pds.seenAt = input.SeenAt
	pds.unread = 0
	writer.WriteHeader(http.StatusOK)
}
