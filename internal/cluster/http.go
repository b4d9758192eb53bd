// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joomcode/errorx"
)

// Endpoint is anything requests can be issued against: a single Node, or a
// Cluster (which resolves to its first connected node).
type Endpoint interface {
	EndpointNode() Node
	Credentials() Auth
}

// Response is a parsed management API response.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errorx.IllegalFormat.Wrap(err, "response body is not valid JSON: %s", string(r.Body))
	}
	return nil
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

type requestOptions struct {
	form     url.Values
	rawBody  string
	expected []int
}

type RequestOption func(*requestOptions)

// WithForm sends the given values as an urlencoded request body.
func WithForm(form url.Values) RequestOption {
	return func(o *requestOptions) { o.form = form }
}

// WithRawBody sends the given string verbatim as the request body.
func WithRawBody(body string) RequestOption {
	return func(o *requestOptions) { o.rawBody = body }
}

// WithExpectedCodes overrides the set of status codes treated as success.
func WithExpectedCodes(codes ...int) RequestOption {
	return func(o *requestOptions) { o.expected = codes }
}

// Request issues an HTTP request against the endpoint's management API. When
// expected status codes are set, any other status is an error carrying the
// response body.
func Request(ctx context.Context, method string, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}

	node := ep.EndpointNode()
	target := node.URL() + path

	var body io.Reader
	if o.form != nil {
		body = strings.NewReader(o.form.Encode())
	} else if o.rawBody != "" {
		body = strings.NewReader(o.rawBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, RequestError.Wrap(err, "failed to build %s request for %s", method, target)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	auth := ep.Credentials()
	req.SetBasicAuth(auth.Username, auth.Password)

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, NewConnectError(err, target)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, RequestError.Wrap(err, "failed to read response from %s", target)
	}

	parsed := &Response{StatusCode: res.StatusCode, Body: data}
	if len(o.expected) > 0 && !containsCode(o.expected, res.StatusCode) {
		return parsed, NewUnexpectedStatusError(method, target, res.StatusCode,
			codesString(o.expected), data)
	}
	return parsed, nil
}

func containsCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func codesString(codes []int) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	return strings.Join(parts, " or ")
}

// Get issues a GET without status checking.
func Get(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodGet, ep, path, opts...)
}

// GetSucc issues a GET expecting 200.
func GetSucc(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodGet, ep, path, append(opts, WithExpectedCodes(http.StatusOK))...)
}

// Post issues a POST without status checking.
func Post(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodPost, ep, path, opts...)
}

// PostSucc issues a POST expecting 200 unless overridden.
func PostSucc(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodPost, ep, path, append([]RequestOption{WithExpectedCodes(http.StatusOK)}, opts...)...)
}

// PutSucc issues a PUT expecting 200.
func PutSucc(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodPut, ep, path, append(opts, WithExpectedCodes(http.StatusOK))...)
}

// Delete issues a DELETE without status checking.
func Delete(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodDelete, ep, path, opts...)
}

// DeleteSucc issues a DELETE expecting 200.
func DeleteSucc(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodDelete, ep, path, append(opts, WithExpectedCodes(http.StatusOK))...)
}

// EnsureDeleted issues a DELETE treating 200 and 404 both as success.
func EnsureDeleted(ctx context.Context, ep Endpoint, path string, opts ...RequestOption) (*Response, error) {
	return Request(ctx, http.MethodDelete, ep, path,
		append(opts, WithExpectedCodes(http.StatusOK, http.StatusNotFound))...)
}

// DiagEval runs a snippet through the cluster's introspection endpoint and
// returns the raw textual result.
func DiagEval(ctx context.Context, ep Endpoint, code string) (string, error) {
	res, err := PostSucc(ctx, ep, "/diag/eval", WithRawBody(code))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text()), nil
}
