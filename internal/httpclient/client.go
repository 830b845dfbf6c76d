// Package httpclient provides the HTTP client shared by the fetcher and the
// sender: one base URL, one fixed header set and a bounded retry policy.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carlmjohnson/requests"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second

	// MaxBackoff bounds the delay between two attempts.
	MaxBackoff = 5 * time.Minute

	maxErrorBodyLen = 200
)

// Options configures a Client.
type Options struct {
	// Name identifies the remote system in log lines ("source", "destination").
	Name       string
	BaseURL    string
	AuthHeader string
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration

	// HTTPClient overrides the transport; used by tests.
	HTTPClient *http.Client
}

// RequestSpec describes one logical request.
type RequestSpec struct {
	Method  string
	Path    string
	Params  url.Values
	Body    any
	Headers map[string]string
}

// Client executes requests against a fixed base URL, retrying transient failures.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	name       string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a Client from opts, applying defaults for unset tuning values.
func New(opts Options) *Client {
	headers := map[string]string{
		"Accept": "application/json",
	}
	if opts.AuthHeader != "" {
		headers["Authorization"] = opts.AuthHeader
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	name := opts.Name
	if name == "" {
		name = "http"
	}

	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		headers:    headers,
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepContext,
	}
}

// BaseURL returns the base URL all request paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute performs the request and returns the response body.
//
// 4xx responses are returned immediately. 5xx responses and requests that fail
// before a response arrives are retried up to MaxRetries times, waiting
// BaseDelay * 2^attempt before each retry.
func (c *Client) Execute(ctx context.Context, spec RequestSpec) ([]byte, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if spec.Body != nil {
		var err error
		body, err = json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		respBody, err := c.do(ctx, method, spec, body, attempt)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt >= c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		log.Printf("[%s] retrying %s %s in %v (attempt %d/%d): %v",
			c.name, method, spec.Path, delay, attempt+1, c.maxRetries, err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxRetries+1, lastErr)
}

// ExecuteJSON performs the request and unmarshals the response into dest.
func (c *Client) ExecuteJSON(ctx context.Context, spec RequestSpec, dest any) error {
	body, err := c.Execute(ctx, spec)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dest)
}

func (c *Client) do(ctx context.Context, method string, spec RequestSpec, body []byte, attempt int) ([]byte, error) {
	fullURL := c.url(spec.Path)

	var status int
	var buf bytes.Buffer

	rb := requests.
		URL(fullURL).
		Client(c.httpClient).
		Method(method).
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		ToBytesBuffer(&buf)

	for k, v := range c.headers {
		rb.Header(k, v)
	}
	for k, v := range spec.Headers {
		rb.Header(k, v)
	}
	for k, values := range spec.Params {
		rb.Param(k, values...)
	}
	if body != nil {
		rb.Header("Content-Type", "application/json").BodyBytes(body)
	}

	log.Printf("[%s] -> %s %s attempt=%d", c.name, method, fullURL, attempt)
	start := time.Now()

	err := rb.Fetch(ctx)
	elapsed := time.Since(start).Round(time.Millisecond)

	if status == 0 {
		if err == nil {
			err = fmt.Errorf("no response received")
		}
		log.Printf("[%s] <- %s %s error=%q duration=%v", c.name, method, fullURL, err.Error(), elapsed)
		return nil, &RequestError{Method: method, URL: fullURL, Err: err}
	}

	log.Printf("[%s] <- %s %s status=%d duration=%v", c.name, method, fullURL, status, elapsed)

	if err != nil {
		// The response arrived but its body could not be read.
		return nil, &RequestError{Method: method, URL: fullURL, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{
			Method:     method,
			URL:        fullURL,
			StatusCode: status,
			Body:       truncate(buf.String(), maxErrorBodyLen),
		}
	}
	return buf.Bytes(), nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// backoff returns BaseDelay * 2^attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 0; i < attempt; i++ {
		if delay >= MaxBackoff/2 {
			return MaxBackoff
		}
		delay *= 2
	}
	if delay > MaxBackoff {
		return MaxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
