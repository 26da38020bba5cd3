// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Handler answers one XRPC method. A nil result with a nil error sends
// an empty 200 response.
type Handler func(request *Request) (any, error)

// Request is what a Handler sees of an incoming call.
type Request struct {
	Method string
	Params url.Values
	Body   []byte
	// Token is the bearer token, empty for anonymous calls.
	Token string
}

// Decode unmarshals the JSON request body into v.
func (r *Request) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &Error{Status: http.StatusBadRequest, Kind: "InvalidRequest", Message: err.Error()}
	}
	return nil
}

// Error is a structured XRPC error response.
type Error struct {
	Status  int
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

// Server is a fake PDS.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	server := &Server{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	server.Server = httptest.NewServer(http.HandlerFunc(server.serve))
	t.Cleanup(server.Close)
	return server
}

// Handle registers handler for method, replacing any earlier one.
func (s *Server) Handle(method string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

// Calls returns how many requests for method have arrived.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// RequireAuth wraps handler so that calls without the given bearer
// token fail with AuthenticationRequired.
func RequireAuth(token string, handler Handler) Handler {
	return func(request *Request) (any, error) {
		if request.Token != token {
			return nil, &Error{Status: http.StatusUnauthorized, Kind: "AuthenticationRequired", Message: "bad or missing token"}
		}
		return handler(request)
	}
}

func (s *Server) serve(writer http.ResponseWriter, httpRequest *http.Request) {
	method, found := strings.CutPrefix(httpRequest.URL.Path, "/xrpc/")
	if !found {
		http.NotFound(writer, httpRequest)
		return
	}
	body, err := io.ReadAll(httpRequest.Body)
	if err != nil {
		writeError(writer, &Error{Status: http.StatusBadRequest, Kind: "InvalidRequest", Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.calls[method]++
	handler := s.handlers[method]
	s.mu.Unlock()
	if handler == nil {
		writeError(writer, &Error{Status: http.StatusNotImplemented, Kind: "MethodNotImplemented", Message: method})
		return
	}

	request := &Request{
		Method: method,
		Params: httpRequest.URL.Query(),
		Body:   body,
		Token:  strings.TrimPrefix(httpRequest.Header.Get("Authorization"), "Bearer "),
	}
	result, err := handler(request)
	if err != nil {
		xrpcErr, ok := err.(*Error)
		if !ok {
			xrpcErr = &Error{Status: http.StatusInternalServerError, Kind: "InternalServerError", Message: err.Error()}
		}
		writeError(writer, xrpcErr)
		return
	}
	if result == nil {
		writer.WriteHeader(http.StatusOK)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(result)
}

func writeError(writer http.ResponseWriter, xrpcErr *Error) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(xrpcErr.Status)
	json.NewEncoder(writer).Encode(map[string]string{"error": xrpcErr.Kind, "message": xrpcErr.Message})
}
