// Package httpds implements the "http" source: the body of a GET request,
// fetched with retry and exponential backoff on transient failures.
//
// Transport errors, 429 and 5xx responses are retried; any other non-2xx
// status fails at once. Context cancellation aborts both the request and the
// backoff wait.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config configures a Source. Zero values get defaults:
//   - Timeout:        30s
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	URL string

	// Timeout bounds a whole attempt, body included.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	Headers map[string]string

	// Transport replaces the default transport (tests).
	Transport http.RoundTripper
}

// Source streams the response body of cfg.URL. It implements
// datasource.Source.
type Source struct {
	httpClient     *http.Client
	url            string
	headers        http.Header
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	// wait is injectable to make tests fast and deterministic.
	wait func(ctx context.Context, d time.Duration) error
}

// New constructs a Source from cfg, applying defaults for zero values.
func New(cfg Config) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	hdr := http.Header{}
	for k, v := range cfg.Headers {
		hdr.Set(k, v)
	}

	return &Source{
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		url:            cfg.URL,
		headers:        hdr,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		wait:           sleepWithContext,
	}
}

// URL returns the address the source reads from.
func (s *Source) URL() string { return s.url }

// Open sends the GET and returns the response body. The caller must close it.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	attempts := s.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		req.Header = s.headers.Clone()

		resp, err := s.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("httpds: GET %s: %w", s.url, err)
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp.Body, nil
		case isRetryableStatus(resp.StatusCode):
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("httpds: GET %s: retryable status %d", s.url, resp.StatusCode)
		default:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("httpds: GET %s: status %d", s.url, resp.StatusCode)
		}

		if attempt+1 >= attempts {
			break
		}
		if err := s.wait(ctx, backoffDuration(s.initialBackoff, attempt, s.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w (after %d attempts)", lastErr, attempts)
}

// isRetryableStatus reports whether code is transient: 429 or 5xx.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns initial * 2^attempt, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	if attempt <= 0 {
		return min(initial, max)
	}
	d := initial << attempt
	if d <= 0 || d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
