// Package extract downloads the yearly source datasets, unpacks them, and
// consolidates their Latin-1 CSV contents into records for the transform
// stage. Downloads run concurrently per year; everything downstream of
// extraction stays single-threaded.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// clientConfig configures the retrying HTTP client.
//
// Zero values are given sensible defaults:
//   - Timeout:        5m
//   - MaxRetries:     3
//   - InitialBackoff: 500ms
//   - MaxBackoff:     10s
type clientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Transport is an optional custom RoundTripper for tests.
	Transport http.RoundTripper
}

// client wraps an http.Client with retry and backoff behavior. It carries a
// cookie jar because the Google Drive download flow is cookie-driven.
type client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newClient(cfg clientConfig) *client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}

	jar, _ := cookiejar.New(nil)
	return &client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Jar:       jar,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// get issues a GET with retry and exponential backoff on transport errors,
// 5xx, and 429. The returned response has a non-nil Body the caller must
// close.
func (c *client) get(ctx context.Context, url string) (*http.Response, error) {
	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("extract: build request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		} else {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("extract: retryable status %d from GET %s", resp.StatusCode, url)
		}

		if attempt+1 >= attempts {
			return nil, lastErr
		}
		if err := sleepWithContext(ctx, backoffDuration(c.initialBackoff, attempt, c.maxBackoff)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// cookies returns the jar cookies currently set for req URL u.
func (c *client) cookies(u string) []*http.Cookie {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(req.URL)
}

// isRetryableStatus is intentionally conservative: 5xx and 429 are treated
// as transient; everything else is considered final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff for the given 0-based
// retry index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d but aborts early if ctx is canceled.
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
