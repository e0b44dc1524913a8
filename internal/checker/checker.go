package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nholik/goact-stack/internal/health"
)

const (
	// DefaultPath is the health endpoint path served by the backend.
	DefaultPath = "/api/health"

	defaultMaxBytes int64 = 64 << 10
)

// Checker performs a single health check.
type Checker interface {
	Check(ctx context.Context) (health.HealthStatus, error)
}

// HTTPChecker checks a backend by issuing GET requests to its health endpoint.
type HTTPChecker struct {
	url      string
	client   *retryablehttp.Client
	maxBytes int64
}

// Option customizes an HTTPChecker.
type Option func(*HTTPChecker)

// WithMaxBytes caps the accepted response body size.
func WithMaxBytes(maxBytes int64) Option {
	return func(c *HTTPChecker) {
		if maxBytes > 0 {
			c.maxBytes = maxBytes
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPChecker) {
		if client != nil {
			c.client.HTTPClient = client
		}
	}
}

// NewHTTPChecker constructs a checker for baseURL joined with path.
func NewHTTPChecker(baseURL, path string, timeout time.Duration, opts ...Option) (*HTTPChecker, error) {
	endpoint, err := EndpointURL(baseURL, path)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errors.New("timeout must be greater than zero")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
		return false, nil
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: timeout}

	c := &HTTPChecker{
		url:      endpoint,
		client:   client,
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the endpoint this checker targets.
func (c *HTTPChecker) URL() string {
	return c.url
}

// Check issues one GET request and decodes the HealthStatus body.
func (c *HTTPChecker) Check(ctx context.Context) (health.HealthStatus, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return health.HealthStatus{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return health.HealthStatus{}, &health.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBytes))
		return health.HealthStatus{}, &health.ProtocolError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := readWithLimit(resp.Body, c.maxBytes)
	if err != nil {
		return health.HealthStatus{}, err
	}
	return decodeStatus(body)
}

func readWithLimit(r io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &health.TransportError{Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > maxBytes {
		return nil, &health.DecodeError{Err: fmt.Errorf("body exceeds %d bytes", maxBytes)}
	}
	return body, nil
}

func decodeStatus(body []byte) (health.HealthStatus, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return health.HealthStatus{}, &health.DecodeError{Err: errors.New("body is empty")}
	}

	var raw struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return health.HealthStatus{}, &health.DecodeError{Err: err}
	}
	// Any string is a valid status, including an empty one.
	if raw.Status == nil {
		return health.HealthStatus{}, &health.DecodeError{Err: errors.New(`missing "status" field`)}
	}
	return health.HealthStatus{Status: *raw.Status}, nil
}

// EndpointURL joins a base URL and a path, validating the result.
func EndpointURL(baseURL, path string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", errors.New("backend url must not be empty")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("invalid backend url: must include scheme and host")
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + path
	return parsed.String(), nil
}
