// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bureau-foundation/atproto/lib/netutil"
	"github.com/bureau-foundation/atproto/lib/syntax"
	"github.com/bureau-foundation/atproto/lib/version"
)

const instrumentationName = "github.com/bureau-foundation/atproto/xrpc"

// Config holds the parameters for creating a Client.
type Config struct {
	// Host is the base URL of the service (e.g. "https://bsky.social").
	Host string

	// HTTPClient is the HTTP client used for requests. If nil, a client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Logger receives a debug line per call. If nil, slog.Default().
	Logger *slog.Logger

	// TracerProvider supplies the tracer for call spans. If nil, the
	// global provider (a no-op unless configured) is used.
	TracerProvider trace.TracerProvider

	// UserAgent is sent on every request. If empty, version.UserAgent().
	UserAgent string
}

// Client dispatches XRPC calls against a single host. It holds no
// credentials and is safe for concurrent use.
type Client struct {
	host       string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	userAgent  string
}

// NewClient validates the host URL and creates a Client. No network
// I/O is performed.
func NewClient(config Config) (*Client, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("xrpc: host is required")
	}
	parsed, err := url.Parse(config.Host)
	if err != nil {
		return nil, fmt.Errorf("xrpc: invalid host %q: %w", config.Host, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("xrpc: host %q must use http or https", config.Host)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("xrpc: host %q has no hostname", config.Host)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracerProvider := config.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	return &Client{
		host:       strings.TrimRight(config.Host, "/"),
		httpClient: httpClient,
		logger:     logger,
		tracer:     tracerProvider.Tracer(instrumentationName),
		userAgent:  userAgent,
	}, nil
}

// Host returns the base URL with any trailing slash removed.
func (c *Client) Host() string {
	return c.host
}

// Kind distinguishes the two XRPC call types.
type Kind int

const (
	// KindQuery is a read: GET with query parameters.
	KindQuery Kind = iota
	// KindProcedure is a write: POST with a body.
	KindProcedure
)

func (k Kind) httpMethod() string {
	if k == KindProcedure {
		return http.MethodPost
	}
	return http.MethodGet
}

// Request describes one XRPC call.
type Request struct {
	Kind Kind

	// Method is the NSID of the XRPC method.
	Method string

	// Params are encoded into the query string, in order.
	Params Params

	// Body is JSON-encoded as the procedure input. Ignored when
	// RawBody is set.
	Body any

	// RawBody is sent verbatim with ContentType. Used for blob upload.
	RawBody     io.Reader
	ContentType string

	// Token, if non-empty, is sent as "Authorization: Bearer <Token>".
	Token string
}

// Do performs the call and returns the raw 2xx response body. Non-2xx
// responses and transport failures are returned as *Error or
// *TransportError.
func (c *Client) Do(ctx context.Context, request Request) ([]byte, error) {
	if _, err := syntax.ParseNSID(request.Method); err != nil {
		return nil, fmt.Errorf("xrpc: invalid method: %w", err)
	}
	verb := request.Kind.httpMethod()

	ctx, span := c.tracer.Start(ctx, "xrpc "+request.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("xrpc.method", request.Method),
			attribute.String("http.request.method", verb),
			attribute.Bool("xrpc.authenticated", request.Token != ""),
		))
	defer span.End()

	start := time.Now()
	statusCode, body, err := c.roundTrip(ctx, verb, request)
	duration := time.Since(start)

	if statusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("xrpc call failed",
			"method", request.Method,
			"status", statusCode,
			"duration", duration,
			"error", err,
		)
		return nil, err
	}

	c.logger.Debug("xrpc call",
		"method", request.Method,
		"status", statusCode,
		"duration", duration,
		"bytes", len(body),
	)
	return body, nil
}

// roundTrip sends the request and classifies the response. The status
// code is returned even on error when a response was received.
func (c *Client) roundTrip(ctx context.Context, verb string, request Request) (int, []byte, error) {
	requestURL := c.host + "/xrpc/" + request.Method
	if request.Params.Len() > 0 {
		requestURL += "?" + request.Params.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case request.Kind == KindQuery:
	case request.RawBody != nil:
		bodyReader = request.RawBody
		contentType = request.ContentType
	case request.Body != nil:
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("xrpc: %s: encoding request body: %w", request.Method, err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	httpRequest, err := http.NewRequestWithContext(ctx, verb, requestURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("xrpc: %s: creating request: %w", request.Method, err)
	}
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpRequest.Header.Set("Content-Type", contentType)
	}
	if request.Token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+request.Token)
	}

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return 0, nil, &TransportError{Method: request.Method, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return response.StatusCode, nil, &TransportError{
			Method:     request.Method,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return response.StatusCode, responseBody, nil
	}

	// A structured error has a JSON object body with a non-empty
	// "error" member. Anything else (HTML from a proxy, an empty 502)
	// is a transport-level failure.
	var xrpcErr Error
	if jsonErr := json.Unmarshal(responseBody, &xrpcErr); jsonErr != nil || xrpcErr.Kind == "" {
		return response.StatusCode, nil, &TransportError{
			Method:     request.Method,
			StatusCode: response.StatusCode,
			Body:       responseBody,
			Err:        fmt.Errorf("HTTP %d", response.StatusCode),
		}
	}
	xrpcErr.StatusCode = response.StatusCode
	return response.StatusCode, nil, &xrpcErr
}

// Query performs a GET and decodes the response into T.
func Query[T any](ctx context.Context, c *Client, method string, params Params, token string) (*T, error) {
	body, err := c.Do(ctx, Request{Kind: KindQuery, Method: method, Params: params, Token: token})
	if err != nil {
		return nil, err
	}
	return Decode[T](method, body)
}

// Procedure performs a JSON POST and decodes the response into T.
func Procedure[T any](ctx context.Context, c *Client, method string, input any, token string) (*T, error) {
	body, err := c.Do(ctx, Request{Kind: KindProcedure, Method: method, Body: input, Token: token})
	if err != nil {
		return nil, err
	}
	return Decode[T](method, body)
}

// ProcedureNoContent performs a JSON POST whose output, if any, the
// caller does not need.
func ProcedureNoContent(ctx context.Context, c *Client, method string, input any, token string) error {
	_, err := c.Do(ctx, Request{Kind: KindProcedure, Method: method, Body: input, Token: token})
	return err
}

// Upload POSTs a raw body with the given media type and decodes the
// response into T.
func Upload[T any](ctx context.Context, c *Client, method string, body io.Reader, mediaType, token string) (*T, error) {
	responseBody, err := c.Do(ctx, Request{
		Kind:        KindProcedure,
		Method:      method,
		RawBody:     body,
		ContentType: mediaType,
		Token:       token,
	})
	if err != nil {
		return nil, err
	}
	return Decode[T](method, responseBody)
}

// Decode unmarshals a 2xx response body into T, wrapping any failure
// in a *DecodeError.
func Decode[T any](method string, body []byte) (*T, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &DecodeError{Method: method, Body: body, Err: errors.New("empty response body")}
	}
	var value T
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, &DecodeError{Method: method, Body: body, Path: jsonErrorPath(err), Err: err}
	}
	return &value, nil
}

// jsonErrorPath extracts the field path from an encoding/json error.
func jsonErrorPath(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field
	}
	return ""
}
