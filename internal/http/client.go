package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Common errors.
var (
	ErrNetwork      = errors.New("http: network error")
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrClientError  = errors.New("http: client error")
	ErrServerError  = errors.New("http: server error")
)

// StatusError is returned for a non-2xx response. It wraps one of the
// status sentinels so callers can use errors.Is.
type StatusError struct {
	Code int
	URL  string
	err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d %s (%s)", e.err, e.Code, http.StatusText(e.Code), e.URL)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 32
	MaxIdleConnsPerHost int

	// Timeout bounds connecting, waiting for response headers and every
	// wait for more body data of a single request.
	// Default: 3s
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts.
	// Default: 3
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 100ms
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 2s
	RetryMaxBackoff time.Duration

	// Headers are sent with every request. Per-request headers win.
	// Default: DefaultHeaders()
	Headers http.Header

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64

	// Tracing wraps the transport with OpenTelemetry instrumentation.
	Tracing bool

	// OnRetry is called before every retry attempt.
	OnRetry func(url string, attempt int, err error)
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 32,
		Timeout:             3 * time.Second,
		RetryAttempts:       3,
		RetryBackoff:        100 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		Headers:             DefaultHeaders(),
	}
}

// DefaultHeaders returns the static headers of a desktop browser.
func DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Accept", "*/*")
	h.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/79.0.3945.136 YaBrowser/20.2.3.320 (beta) Yowser/2.5 Safari/537.36")
	h.Set("Sec-Fetch-Site", "same-site")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Accept-Language", "ru,en;q=0.9")
	return h
}

// MergeHeaders returns a new header set holding base overridden by override.
// Neither argument is modified.
func MergeHeaders(base, override http.Header) http.Header {
	merged := base.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for k, v := range override {
		merged[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return merged
}

// Client is an HTTP client with static headers and bounded retries.
type Client struct {
	client  *http.Client
	opts    Options
	headers http.Header
	limiter *rate.Limiter
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		ForceAttemptHTTP2:     true,
	}
	if opts.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	headers := opts.Headers
	if headers == nil {
		headers = DefaultHeaders()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		client:  &http.Client{Transport: transport},
		opts:    opts,
		headers: headers.Clone(),
		limiter: limiter,
	}
}

// WithHeaders returns a client sharing the connection pool of c whose static
// headers are c's headers overridden by override.
func (c *Client) WithHeaders(override http.Header) *Client {
	clone := *c
	clone.headers = MergeHeaders(c.headers, override)
	return &clone
}

// Headers returns a copy of the static headers.
func (c *Client) Headers() http.Header {
	return c.headers.Clone()
}

// Get performs a GET request and returns the streamed body.
// The caller must close the body.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (io.ReadCloser, error) {
	if c.opts.Timeout <= 0 {
		resp, err := c.do(ctx, url, header)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	resp, err := c.do(reqCtx, url, header)
	if err != nil {
		cancel(nil)
		return nil, err
	}

	b := &idleBody{
		body:    resp.Body,
		ctx:     reqCtx,
		cancel:  cancel,
		timeout: c.opts.Timeout,
	}
	b.timer = time.AfterFunc(b.timeout, func() { cancel(errIdleBody) })
	return b, nil
}

var errIdleBody = errors.New("body idle")

// idleBody cancels its request once no data arrived for timeout.
type idleBody struct {
	body    io.ReadCloser
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   *time.Timer
	timeout time.Duration
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && err != io.EOF && errors.Is(context.Cause(b.ctx), errIdleBody) {
		return n, fmt.Errorf("%w: no body data for %s", ErrNetwork, b.timeout)
	}
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.body.Close()
	b.cancel(nil)
	return err
}

// GetText performs a GET request and returns the body as a string.
func (c *Client) GetText(ctx context.Context, url string, header http.Header) (string, error) {
	body, err := c.Get(ctx, url, header)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return string(data), nil
}

// GetJSON performs a GET request and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, v any) error {
	body, err := c.Get(ctx, url, header)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode json from %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if c.opts.OnRetry != nil {
				c.opts.OnRetry(url, attempt, lastErr)
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header = MergeHeaders(c.headers, header)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w", ErrNetwork, err)
			continue
		}

		// Server errors are retryable
		if resp.StatusCode >= 500 {
			drain(resp.Body)
			lastErr = &StatusError{Code: resp.StatusCode, URL: url, err: ErrServerError}
			continue
		}

		if err := checkStatusCode(url, resp.StatusCode); err != nil {
			drain(resp.Body)
			return nil, err
		}

		return resp, nil
	}

	return nil, fmt.Errorf("get request failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &StatusError{Code: code, URL: url, err: ErrNotFound}
	case code == http.StatusForbidden:
		return &StatusError{Code: code, URL: url, err: ErrForbidden}
	case code == http.StatusUnauthorized:
		return &StatusError{Code: code, URL: url, err: ErrUnauthorized}
	default:
		return &StatusError{Code: code, URL: url, err: ErrClientError}
	}
}

// drain discards a bounded amount of body so the connection can be reused.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	body.Close()
}
