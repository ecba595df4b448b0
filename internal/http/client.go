package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotFound         = errors.New("http: resource not found")
	ErrForbidden        = errors.New("http: access forbidden")
	ErrUnauthorized     = errors.New("http: unauthorized")
	ErrServerError      = errors.New("http: server error")
	ErrTooManyRedirects = errors.New("http: too many redirects")
	ErrUnsupportedURL   = errors.New("http: unsupported URL")
)

// maxDrain bounds how much of an error response body is read before closing.
const maxDrain = 64 * 1024

// Options configures the HTTP client.
type Options struct {
	// Timeout bounds the whole request including reading the body.
	// Default: 0 (no limit)
	Timeout time.Duration

	// ConnectTimeout bounds dialing and the TLS handshake.
	// Default: 30s
	ConnectTimeout time.Duration

	// InactivityTimeout aborts the transfer when no bytes arrive for this long.
	// Default: 0 (disabled)
	InactivityTimeout time.Duration

	// MaxRedirects is the maximum number of redirects followed.
	// A negative value disables redirect following.
	// Default: 10
	MaxRedirects int

	// UserAgent is sent with every request.
	UserAgent string

	// Headers are added to every request.
	Headers map[string]string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		MaxRedirects:   10,
		UserAgent:      "nsisdl/1",
	}
}

// Metadata describes a successful response.
type Metadata struct {
	// TotalSize is the declared body size. Only meaningful when HasSize is set.
	TotalSize    int64
	HasSize      bool
	ETag         string
	ContentType  string
	LastModified time.Time
	// FinalURL is the URL the body was served from after redirects.
	FinalURL string
}

// Size returns the size hint and whether the server declared one.
func (m Metadata) Size() (int64, bool) {
	return m.TotalSize, m.HasSize
}

// Response is an open response body ready to be streamed.
// The caller must close Body.
type Response struct {
	Body       io.ReadCloser
	StatusCode int
	Metadata   Metadata
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("http: unexpected status %s", e.Status)
	}
	return fmt.Sprintf("http: unexpected status code: %d", e.Code)
}

// Is lets callers match status errors against the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrForbidden:
		return e.Code == http.StatusForbidden
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrServerError:
		return e.Code >= 500
	}
	return false
}

// TransportError is returned when no HTTP status could be obtained:
// malformed URLs, DNS, connect and TLS failures, redirect loops.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http: request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode reports the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Reason names the class of a Fetch error for logs and messages.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrServerError):
		return "server error"
	case errors.Is(err, ErrTooManyRedirects):
		return "too many redirects"
	case errors.Is(err, ErrInactivityTimeout):
		return "inactivity timeout"
	case errors.Is(err, ErrUnsupportedURL):
		return "unsupported url"
	case IsTransport(err):
		return "transport"
	}
	if _, ok := StatusCode(err); ok {
		return "unexpected status"
	}
	return "unknown"
}

// Client fetches whole resources over HTTP for streaming to disk.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true, // Content-Length must describe the bytes we write
	}

	c := &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
	c.client.CheckRedirect = c.checkRedirect
	return c
}

// Fetch issues a GET for rawURL and returns the open body with its metadata.
// Non-2xx responses are returned as *StatusError and the body is discarded.
// Failures before a status is known are returned as *TransportError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	reqCtx, wd := newWatchdog(ctx, c.opts.InactivityTimeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		wd.Cancel()
		return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		wd.Cancel()
		return nil, &TransportError{URL: rawURL, Err: wd.cause(err)}
	}

	if err := checkStatusCode(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		resp.Body.Close()
		wd.Cancel()
		return nil, err
	}

	wd.Kick()
	return &Response{
		Body:       &watchedBody{ReadCloser: resp.Body, wd: wd},
		StatusCode: resp.StatusCode,
		Metadata:   metadataFrom(resp),
	}, nil
}

func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if c.opts.MaxRedirects < 0 {
		return http.ErrUseLastResponse
	}
	if len(via) > c.opts.MaxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, c.opts.MaxRedirects)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	return nil
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrUnsupportedURL, rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return u, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
}

// checkStatusCode returns a *StatusError for non-success status codes.
func checkStatusCode(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Code: resp.StatusCode, Status: resp.Status}
}

func metadataFrom(resp *http.Response) Metadata {
	m := Metadata{
		ETag:        cleanETag(resp.Header.Get("ETag")),
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}

	if size, ok := ParseSizeHint(resp.Header.Get("Content-Length")); ok {
		m.TotalSize, m.HasSize = size, true
	} else if resp.ContentLength >= 0 && resp.Header.Get("Content-Length") == "" {
		// net/http can know the length without the header, e.g. for an empty 204.
		m.TotalSize, m.HasSize = resp.ContentLength, true
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			m.LastModified = t
		}
	}
	return m
}

// ParseSizeHint parses a Content-Length header value.
// It reports false for empty, negative or malformed values.
func ParseSizeHint(header string) (int64, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(header, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// cleanETag removes quotes from an ETag value.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}
