// Package rest is the transport layer generated clients call through. It is
// deliberately thin: no retry or backoff policy, no response validation.
// Its job is to put exactly the bytes the test asked for on the wire.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kolah/probekit/param"
)

// Request is the mutable call state CallOptions and hooks operate on.
type Request struct {
	Method      string
	Path        string
	Header      http.Header
	Query       *param.Fields
	Body        *param.Fields
	ContentType string

	// RawBody, when set, is sent as-is instead of the encoded Body fields.
	RawBody []byte
}

// Response is the transport-level result of one call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// CallOption mutates one request before it is sent. Options are how callers
// pass arbitrary undocumented keys and transport tweaks through untouched.
type CallOption func(*Request)

// WithHeader sets a request header.
func WithHeader(key, value string) CallOption {
	return func(r *Request) { r.Header.Set(key, value) }
}

// WithQueryValue adds an undocumented query key.
func WithQueryValue(key string, value any) CallOption {
	return func(r *Request) { r.Query.SetQuery(key, value) }
}

// WithBodyValue adds an undocumented body key.
func WithBodyValue(key string, value any) CallOption {
	return func(r *Request) { r.Body.Set(key, value) }
}

// WithNullBodyValue adds an undocumented body key holding explicit null.
func WithNullBodyValue(key string) CallOption {
	return func(r *Request) { r.Body.SetNull(key) }
}

// WithContentType overrides the request content type.
func WithContentType(ct string) CallOption {
	return func(r *Request) { r.ContentType = ct }
}

// WithRawBody replaces the encoded body with raw bytes.
func WithRawBody(data []byte) CallOption {
	return func(r *Request) { r.RawBody = data }
}

// PreHook runs after the http.Request is built and before it is sent.
// Returning an error aborts the call.
type PreHook func(*http.Request) error

// PostHook observes every completed exchange.
type PostHook func(*http.Request, *Response)

// Client sends requests against one base URL. Hooks run in registration
// order.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	PreHooks   []PreHook
	PostHooks  []PostHook
}

// NewClient builds a client for baseURL with the default http.Client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// NewRequest initializes call state for method and an already substituted
// path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		Header:      make(http.Header),
		Query:       param.NewFields(),
		Body:        param.NewFields(),
		ContentType: "application/json",
	}
}

// Do sends the request and reads the full response body.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, hook := range c.PreHooks {
		if err := hook(httpReq); err != nil {
			return nil, fmt.Errorf("pre-request hook: %w", err)
		}
	}

	start := time.Now()
	httpResp, err := c.http().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}
	for _, hook := range c.PostHooks {
		hook(httpReq, resp)
	}
	return resp, nil
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + req.Path)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	if req.Query.Len() > 0 {
		q := u.Query()
		for _, key := range req.Query.Keys() {
			v, _ := req.Query.Get(key)
			if req.Query.IsNull(key) || v == nil {
				q.Add(key, "")
				continue
			}
			q.Add(key, fmt.Sprintf("%v", v))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	haveBody := false
	switch {
	case req.RawBody != nil:
		body = bytes.NewReader(req.RawBody)
		haveBody = true
	case req.Body.Len() > 0:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		haveBody = true
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if haveBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	return httpReq, nil
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
