// Package transport is the storefront's HTTP plumbing: a typed JSON client
// over net/http with telemetry and the outbound middlewares from
// pkg/httpclient. Page cursors returned by the backend are opaque absolute
// URLs and are requested verbatim.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/lacomanda/storefront/pkg/httpclient"
)

// maxErrorBody bounds how much of an error response is decoded.
const maxErrorBody = 1 << 20

// Client performs JSON requests against the storefront backend.
type Client struct {
	http *http.Client
	base *url.URL
	lg   *zap.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	middlewares []httpclient.Middleware
	otelOpts    []otelhttp.Option
}

// WithTimeout sets the overall per-request timeout. Deadlines are this
// layer's job; callers treat a timeout like any other transport failure.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithMiddlewares appends outbound RoundTripper middlewares.
func WithMiddlewares(mws ...httpclient.Middleware) Option {
	return func(o *clientOptions) { o.middlewares = append(o.middlewares, mws...) }
}

// WithOtelOptions passes options to the otelhttp transport, e.g. custom
// tracer and meter providers.
func WithOtelOptions(opts ...otelhttp.Option) Option {
	return func(o *clientOptions) { o.otelOpts = append(o.otelOpts, opts...) }
}

// New creates a Client for the given base URL.
func New(baseURL string, lg *zap.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}

	o := clientOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	rt := httpclient.Wrap(
		otelhttp.NewTransport(http.DefaultTransport, o.otelOpts...),
		o.middlewares...,
	)
	return &Client{
		http: &http.Client{Transport: rt, Timeout: o.timeout},
		base: base,
		lg:   lg.Named("transport"),
	}, nil
}

// Get requests ref and decodes the response into out (out may be nil).
func (c *Client) Get(ctx context.Context, ref string, out any) error {
	return c.do(ctx, http.MethodGet, ref, nil, out)
}

// Post sends body as JSON to ref and decodes the response into out.
func (c *Client) Post(ctx context.Context, ref string, body, out any) error {
	return c.do(ctx, http.MethodPost, ref, body, out)
}

// Put sends body as JSON to ref and decodes the response into out.
func (c *Client) Put(ctx context.Context, ref string, body, out any) error {
	return c.do(ctx, http.MethodPut, ref, body, out)
}

// Delete requests deletion of ref and decodes the response into out.
func (c *Client) Delete(ctx context.Context, ref string, out any) error {
	return c.do(ctx, http.MethodDelete, ref, nil, out)
}

// Resolve turns a path reference into the absolute request URL. An already
// absolute ref (a pagination cursor) is returned verbatim.
func (c *Client) Resolve(ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	u, err := c.base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, ref string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Resolve(ref), reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, ref)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return errors.Wrapf(err, "read %s %s response", method, ref)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFrom(resp.StatusCode, raw)
	}

	// Some endpoints report failure inside a 2xx envelope.
	if apiErr := successFalse(resp.StatusCode, raw); apiErr != nil {
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, ref)
	}
	return nil
}

func apiErrorFrom(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Payload: map[string]any{}}
	if err := json.Unmarshal(raw, &apiErr.Payload); err != nil {
		// Non-JSON error body: keep it as the detail, trimmed.
		apiErr.Detail = strings.TrimSpace(string(raw))
		if len(apiErr.Detail) > 200 {
			apiErr.Detail = apiErr.Detail[:200]
		}
		return apiErr
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := apiErr.Payload[key].(string); ok {
			apiErr.Detail = s
			break
		}
	}
	return apiErr
}

// successFalse returns an APIError when the body is a JSON object with an
// explicit success:false flag.
func successFalse(status int, raw []byte) *APIError {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Success == nil || *probe.Success {
		return nil
	}
	return apiErrorFrom(status, raw)
}
